package replication

import (
	"context"
	"log/slog"

	"github.com/roach88/peersync/internal/domain"
)

// UserPeer is the part of the peer transport used for users.
type UserPeer interface {
	CreateUser(ctx context.Context, env domain.UserEnvelope) error
	UpdateUser(ctx context.Context, externalID string, env domain.UserEnvelope) error
	DeleteUser(ctx context.Context, externalID string) error
}

// UserReplicator replicates user mutations to the peer.
type UserReplicator struct {
	core *Replicator[domain.User]
	peer UserPeer
}

// NewUserReplicator creates a UserReplicator.
func NewUserReplicator(peer UserPeer, faults *FaultInjector, logger *slog.Logger) *UserReplicator {
	return &UserReplicator{
		core: NewReplicator[domain.User]("user", faults, logger),
		peer: peer,
	}
}

// Create applies a local create and propagates it.
func (r *UserReplicator) Create(ctx context.Context, externalID string, apply func(context.Context) (domain.User, error)) (domain.User, error) {
	u, _, err := r.core.Apply(ctx, Mutation[domain.User]{
		Op:         OpCreate,
		ExternalID: externalID,
		Apply:      apply,
		Propagate: func(ctx context.Context, saved domain.User) error {
			return r.peer.CreateUser(ctx, saved.Envelope())
		},
	})
	return u, err
}

// Update applies a local update and propagates it.
func (r *UserReplicator) Update(ctx context.Context, externalID string, apply func(context.Context) (domain.User, error)) (domain.User, error) {
	u, _, err := r.core.Apply(ctx, Mutation[domain.User]{
		Op:         OpUpdate,
		ExternalID: externalID,
		Apply:      apply,
		Propagate: func(ctx context.Context, saved domain.User) error {
			return r.peer.UpdateUser(ctx, saved.ExternalID, saved.Envelope())
		},
	})
	return u, err
}

// Delete applies a local delete and propagates it.
func (r *UserReplicator) Delete(ctx context.Context, externalID string, apply func(context.Context) error) error {
	_, _, err := r.core.Apply(ctx, Mutation[domain.User]{
		Op:         OpDelete,
		ExternalID: externalID,
		Apply: func(ctx context.Context) (domain.User, error) {
			return domain.User{ExternalID: externalID}, apply(ctx)
		},
		Propagate: func(ctx context.Context, _ domain.User) error {
			return r.peer.DeleteUser(ctx, externalID)
		},
	})
	return err
}
