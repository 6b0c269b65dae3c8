package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/peersync/internal/domain"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedUser inserts a user with the given external id.
func seedUser(t *testing.T, s *Store, externalID, email string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.UserEnvelope{
		ExternalID: externalID,
		Name:       "User " + email,
		Email:      email,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return u
}

// seedDelivery inserts a delivery agent with the given external id.
func seedDelivery(t *testing.T, s *Store, externalID string) domain.DeliveryAgent {
	t.Helper()
	d, err := s.CreateDelivery(context.Background(), domain.DeliveryInput{
		ExternalID: externalID,
		Name:       "Carlos",
		Phone:      "555-0100",
	})
	if err != nil {
		t.Fatalf("CreateDelivery() failed: %v", err)
	}
	return d
}

const (
	userA     = "0190c2a4-0000-7000-8000-00000000000a"
	userB     = "0190c2a4-0000-7000-8000-00000000000b"
	agent1    = "0190c2a4-0000-7000-8000-0000000000d1"
	agent2    = "0190c2a4-0000-7000-8000-0000000000d2"
	order1    = "0190c2a4-0000-7000-8000-0000000000f1"
	missingID = "0190c2a4-0000-7000-8000-00000000ffff"
)
