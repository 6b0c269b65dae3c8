package replication

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/peersync/internal/domain"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakePeer records every call made to it.
type fakePeer struct {
	mu    sync.Mutex
	calls []string
	users []domain.UserEnvelope
	order []domain.OrderEnvelope
	err   error
}

func (p *fakePeer) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *fakePeer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePeer) CreateUser(ctx context.Context, env domain.UserEnvelope) error {
	p.mu.Lock()
	p.users = append(p.users, env)
	p.mu.Unlock()
	return p.record("create user " + env.ExternalID)
}

func (p *fakePeer) UpdateUser(ctx context.Context, id string, env domain.UserEnvelope) error {
	return p.record("update user " + id)
}

func (p *fakePeer) DeleteUser(ctx context.Context, id string) error {
	return p.record("delete user " + id)
}

func (p *fakePeer) CreateOrder(ctx context.Context, env domain.OrderEnvelope) error {
	p.mu.Lock()
	p.order = append(p.order, env)
	p.mu.Unlock()
	return p.record("create order " + env.ExternalID)
}

func (p *fakePeer) UpdateOrder(ctx context.Context, id string, env domain.OrderEnvelope) error {
	return p.record("update order " + id)
}

func (p *fakePeer) DeleteOrder(ctx context.Context, id string) error {
	return p.record("delete order " + id)
}

// categorized is a transport error carrying its own category.
type categorized struct{ code domain.Code }

func (c categorized) Error() string         { return "peer said no" }
func (c categorized) Category() domain.Code { return c.code }

const uid = "0190c2a4-0000-7000-8000-00000000000a"

func savedUser(ctx context.Context) (domain.User, error) {
	return domain.User{ID: 7, ExternalID: uid, Name: "Ana", Email: "ana@example.com"}, nil
}

func TestUserReplicator_PropagatesExternalRequest(t *testing.T) {
	peer := &fakePeer{}
	r := NewUserReplicator(peer, nil, quietLogger)

	u, err := r.Create(context.Background(), uid, savedUser)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	assert.Equal(t, []string{"create user " + uid}, peer.Calls())
	require.Len(t, peer.users, 1)
	assert.Equal(t, domain.UserEnvelope{ExternalID: uid, Name: "Ana", Email: "ana@example.com"}, peer.users[0],
		"envelope is keyed by external id and never carries the private id")
}

func TestUserReplicator_EachOpCallsMatchingPeerOp(t *testing.T) {
	peer := &fakePeer{}
	r := NewUserReplicator(peer, nil, quietLogger)
	ctx := context.Background()

	_, err := r.Update(ctx, uid, savedUser)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, uid, func(context.Context) error { return nil }))

	assert.Equal(t, []string{"update user " + uid, "delete user " + uid}, peer.Calls())
}

func TestUserReplicator_PropagatedRequestNeverCallsPeer(t *testing.T) {
	peer := &fakePeer{}
	r := NewUserReplicator(peer, NewFaultInjector(1), quietLogger)
	ctx := WithPropagated(context.Background(), true)

	for i := 0; i < 5; i++ {
		_, err := r.Create(ctx, uid, savedUser)
		require.NoError(t, err, "propagated creates neither call the peer nor count toward faults")
	}
	_, err := r.Update(ctx, uid, savedUser)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, uid, func(context.Context) error { return nil }))

	// Failed local apply on a propagated request: still zero calls.
	err = r.Delete(ctx, uid, func(context.Context) error { return domain.NewNotFound("user", uid) })
	assert.True(t, domain.IsNotFound(err))

	assert.Empty(t, peer.Calls())
}

func TestUserReplicator_LocalFailureSkipsPropagation(t *testing.T) {
	peer := &fakePeer{}
	r := NewUserReplicator(peer, nil, quietLogger)

	err := r.Delete(context.Background(), uid, func(context.Context) error {
		return domain.NewNotFound("user", uid)
	})

	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	assert.Empty(t, peer.Calls())
}

func TestReplicator_FaultInjectionCycle(t *testing.T) {
	peer := &fakePeer{}
	faults := NewFaultInjector(DefaultFaultThreshold)
	r := NewUserReplicator(peer, faults, quietLogger)
	ctx := context.Background()

	for cycle := 0; cycle < 2; cycle++ {
		for i := 0; i < 4; i++ {
			_, err := r.Create(ctx, uid, savedUser)
			require.NoError(t, err, "cycle %d create %d", cycle, i+1)
		}
		u, err := r.Create(ctx, uid, savedUser)
		require.Error(t, err)
		assert.Equal(t, domain.CodeInjectedFailure, domain.CodeOf(err))
		assert.Equal(t, uid, u.ExternalID, "the local write is returned alongside the failure")
	}

	assert.Len(t, peer.Calls(), 8, "injected failures never reach the peer")
}

func TestReplicator_FaultsCountOnlyCreates(t *testing.T) {
	peer := &fakePeer{}
	faults := NewFaultInjector(DefaultFaultThreshold)
	r := NewUserReplicator(peer, faults, quietLogger)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := r.Update(ctx, uid, savedUser)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), faults.Count())
}

func TestReplicator_FaultInjectorSharedAcrossEntities(t *testing.T) {
	peer := &fakePeer{}
	faults := NewFaultInjector(DefaultFaultThreshold)
	users := NewUserReplicator(peer, faults, quietLogger)
	orders := NewOrderReplicator(peer, faults, quietLogger)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := users.Create(ctx, uid, savedUser)
		require.NoError(t, err)
	}
	_, err := orders.Create(ctx, "o-1", func(context.Context) (domain.Order, error) {
		return domain.Order{ExternalID: "o-1"}, nil
	})
	assert.Equal(t, domain.CodeInjectedFailure, domain.CodeOf(err))
}

func TestReplicator_PeerErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Code
	}{
		{"plain transport error", errors.New("connection refused"), domain.CodeUpstreamUnavailable},
		{"peer 404", categorized{domain.CodeNotFound}, domain.CodeNotFound},
		{"peer 400", categorized{domain.CodeBadInput}, domain.CodeBadInput},
		{"peer 5xx", categorized{domain.CodeUpstreamUnavailable}, domain.CodeUpstreamUnavailable},
		{"already domain error", domain.NewBadInput("nope"), domain.CodeBadInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := &fakePeer{err: tt.err}
			r := NewUserReplicator(peer, nil, quietLogger)

			_, err := r.Update(context.Background(), uid, savedUser)
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.CodeOf(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Len(t, peer.Calls(), 1)
		})
	}
}

func TestReplicator_Outcomes(t *testing.T) {
	ok := func(context.Context) (domain.User, error) { return domain.User{ExternalID: uid}, nil }
	fail := func(context.Context) (domain.User, error) {
		return domain.User{}, domain.NewLocalPersistence("create user", errors.New("disk full"))
	}
	noop := func(context.Context, domain.User) error { return nil }
	broken := func(context.Context, domain.User) error { return errors.New("refused") }

	r := NewReplicator[domain.User]("user", nil, quietLogger)
	bg := context.Background()

	_, out, err := r.Apply(bg, Mutation[domain.User]{Op: OpCreate, ExternalID: uid, Apply: ok, Propagate: noop})
	assert.NoError(t, err)
	assert.Equal(t, OutcomePropagatedOK, out)

	_, out, err = r.Apply(WithPropagated(bg, true), Mutation[domain.User]{Op: OpCreate, ExternalID: uid, Apply: ok, Propagate: broken})
	assert.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)

	_, out, err = r.Apply(bg, Mutation[domain.User]{Op: OpCreate, ExternalID: uid, Apply: fail, Propagate: noop})
	assert.Equal(t, domain.CodeLocalPersistence, domain.CodeOf(err))
	assert.Equal(t, OutcomeLocalApplyFailed, out)

	_, out, err = r.Apply(bg, Mutation[domain.User]{Op: OpCreate, ExternalID: uid, Apply: ok, Propagate: broken})
	assert.Equal(t, domain.CodeUpstreamUnavailable, domain.CodeOf(err))
	assert.Equal(t, OutcomePropagationFailed, out)
}

func TestReplicator_CallerCancellationDoesNotAbortPropagation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var propagateErr error
	r := NewReplicator[domain.User]("user", nil, quietLogger)
	_, out, err := r.Apply(ctx, Mutation[domain.User]{
		Op:         OpUpdate,
		ExternalID: uid,
		Apply: func(ctx context.Context) (domain.User, error) {
			cancel() // caller goes away right after the local commit
			return domain.User{ExternalID: uid}, nil
		},
		Propagate: func(ctx context.Context, _ domain.User) error {
			propagateErr = ctx.Err()
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomePropagatedOK, out)
	assert.NoError(t, propagateErr)
}

func TestOrderReplicator_EnvelopeCarriesReferences(t *testing.T) {
	peer := &fakePeer{}
	r := NewOrderReplicator(peer, nil, quietLogger)

	_, err := r.Create(context.Background(), "o-1", func(context.Context) (domain.Order, error) {
		return domain.Order{
			ID: 3, ExternalID: "o-1", Description: "Pizza", Value: 4590,
			UserID: 11, DeliveryAgentID: 12,
			UserExternalID: "u-1", DeliveryExternalID: "d-1",
			DeliveryName: "Carlos", DeliveryPhone: "555",
		}, nil
	})
	require.NoError(t, err)

	require.Len(t, peer.order, 1)
	env := peer.order[0]
	assert.Equal(t, "o-1", env.ExternalID)
	assert.Equal(t, "u-1", env.UserExternalID)
	assert.Equal(t, "d-1", env.DeliveryExternalID)
	assert.Equal(t, "Carlos", env.DeliveryName)
	require.NotNil(t, env.Value)
	assert.Equal(t, domain.Money(4590), *env.Value)
}

func TestOrderReplicator_UpdateAndDelete(t *testing.T) {
	peer := &fakePeer{}
	r := NewOrderReplicator(peer, nil, quietLogger)
	ctx := context.Background()

	_, err := r.Update(ctx, "o-1", func(context.Context) (domain.Order, error) {
		return domain.Order{ExternalID: "o-1"}, nil
	})
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, "o-1", func(context.Context) error { return nil }))

	assert.Equal(t, []string{"update order o-1", "delete order o-1"}, peer.Calls())
}
