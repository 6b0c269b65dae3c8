package replication

import (
	"context"
	"log/slog"

	"github.com/roach88/peersync/internal/domain"
)

// OrderPeer is the part of the peer transport used for orders.
type OrderPeer interface {
	CreateOrder(ctx context.Context, env domain.OrderEnvelope) error
	UpdateOrder(ctx context.Context, externalID string, env domain.OrderEnvelope) error
	DeleteOrder(ctx context.Context, externalID string) error
}

// OrderReplicator replicates order mutations to the peer. The envelope
// carries the user and agent by external id plus the agent snapshot.
type OrderReplicator struct {
	core *Replicator[domain.Order]
	peer OrderPeer
}

// NewOrderReplicator creates an OrderReplicator.
func NewOrderReplicator(peer OrderPeer, faults *FaultInjector, logger *slog.Logger) *OrderReplicator {
	return &OrderReplicator{
		core: NewReplicator[domain.Order]("order", faults, logger),
		peer: peer,
	}
}

// Create applies a local create and propagates it.
func (r *OrderReplicator) Create(ctx context.Context, externalID string, apply func(context.Context) (domain.Order, error)) (domain.Order, error) {
	o, _, err := r.core.Apply(ctx, Mutation[domain.Order]{
		Op:         OpCreate,
		ExternalID: externalID,
		Apply:      apply,
		Propagate: func(ctx context.Context, saved domain.Order) error {
			return r.peer.CreateOrder(ctx, saved.Envelope())
		},
	})
	return o, err
}

// Update applies a local update and propagates it.
func (r *OrderReplicator) Update(ctx context.Context, externalID string, apply func(context.Context) (domain.Order, error)) (domain.Order, error) {
	o, _, err := r.core.Apply(ctx, Mutation[domain.Order]{
		Op:         OpUpdate,
		ExternalID: externalID,
		Apply:      apply,
		Propagate: func(ctx context.Context, saved domain.Order) error {
			return r.peer.UpdateOrder(ctx, saved.ExternalID, saved.Envelope())
		},
	})
	return o, err
}

// Delete applies a local delete and propagates it.
func (r *OrderReplicator) Delete(ctx context.Context, externalID string, apply func(context.Context) error) error {
	_, _, err := r.core.Apply(ctx, Mutation[domain.Order]{
		Op:         OpDelete,
		ExternalID: externalID,
		Apply: func(ctx context.Context) (domain.Order, error) {
			return domain.Order{ExternalID: externalID}, apply(ctx)
		},
		Propagate: func(ctx context.Context, _ domain.Order) error {
			return r.peer.DeleteOrder(ctx, externalID)
		},
	})
	return err
}
