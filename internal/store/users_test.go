package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/peersync/internal/domain"
)

func TestCreateUser(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, domain.UserEnvelope{ExternalID: userA, Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, userA, u.ExternalID)

	got, err := s.GetUser(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestCreateUser_DuplicateExternalID(t *testing.T) {
	s := createTestStore(t)
	seedUser(t, s, userA, "a@example.com")

	_, err := s.CreateUser(context.Background(), domain.UserEnvelope{ExternalID: userA, Name: "x", Email: "other@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := createTestStore(t)
	seedUser(t, s, userA, "a@example.com")

	_, err := s.CreateUser(context.Background(), domain.UserEnvelope{ExternalID: userB, Name: "x", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1, "failed insert must not leave a row behind")
}

func TestUpdateUser(t *testing.T) {
	s := createTestStore(t)
	orig := seedUser(t, s, userA, "a@example.com")

	u, err := s.UpdateUser(context.Background(), userA, domain.UserEnvelope{Name: "Renamed", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, orig.ID, u.ID)
	assert.Equal(t, userA, u.ExternalID)
	assert.Equal(t, "Renamed", u.Name)
	assert.Equal(t, "new@example.com", u.Email)
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.UpdateUser(context.Background(), missingID, domain.UserEnvelope{Name: "x", Email: "x@example.com"})
	require.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Entity)
	assert.Equal(t, missingID, nf.ExternalID)
}

func TestDeleteUser(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedUser(t, s, userA, "a@example.com")

	require.NoError(t, s.DeleteUser(ctx, userA))

	_, err := s.GetUser(ctx, userA)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, userA), ErrNotFound)
}

func TestDeleteUser_CascadesOrders(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedUser(t, s, userA, "a@example.com")
	seedDelivery(t, s, agent1)

	_, err := s.CreateOrder(ctx, OrderWrite{
		ExternalID: order1, Description: "d", Value: 100,
		UserExternalID: userA, Agent: domain.DeliveryInput{ExternalID: agent1},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, userA))

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListUsers_EmptyAndOrdered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	seedUser(t, s, userB, "b@example.com")
	seedUser(t, s, userA, "a@example.com")

	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, userB, users[0].ExternalID, "ordered by insertion (private id)")
	assert.Equal(t, userA, users[1].ExternalID)
}
