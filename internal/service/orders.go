package service

import (
	"context"
	"log/slog"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/identity"
	"github.com/roach88/peersync/internal/replication"
	"github.com/roach88/peersync/internal/store"
)

// OrderStore is the persistence used by OrderService.
type OrderStore interface {
	CreateOrder(ctx context.Context, w store.OrderWrite) (domain.Order, error)
	UpdateOrder(ctx context.Context, externalID string, w store.OrderWrite) (domain.Order, error)
	DeleteOrder(ctx context.Context, externalID string) error
	GetOrder(ctx context.Context, externalID string) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// OrderService implements order operations.
type OrderService struct {
	store  OrderStore
	repl   *replication.OrderReplicator
	ids    identity.Generator
	logger *slog.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(st OrderStore, repl *replication.OrderReplicator, ids identity.Generator, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{store: st, repl: repl, ids: ids, logger: logger}
}

// Create validates in and creates the order. The user must exist locally.
// The delivery agent must exist too, unless the order came from the peer,
// in which case the agent snapshot in the envelope is materialized.
func (s *OrderService) Create(ctx context.Context, in domain.OrderEnvelope) (domain.Order, error) {
	if err := in.Normalize(); err != nil {
		return domain.Order{}, err
	}
	if in.ExternalID == "" {
		in.ExternalID = s.ids.Generate()
	}
	w := orderWrite(ctx, in)

	return s.repl.Create(ctx, in.ExternalID, func(ctx context.Context) (domain.Order, error) {
		o, err := s.store.CreateOrder(ctx, w)
		if err != nil {
			return domain.Order{}, storeError("create order", "order", in.ExternalID, err)
		}
		s.logger.Info("order created", "id", o.ID, "external_id", o.ExternalID)
		return o, nil
	})
}

// Update overwrites the order identified by externalID.
func (s *OrderService) Update(ctx context.Context, externalID string, in domain.OrderEnvelope) (domain.Order, error) {
	externalID = pathID(externalID)
	in.ExternalID = ""
	if err := in.Normalize(); err != nil {
		return domain.Order{}, err
	}
	w := orderWrite(ctx, in)

	return s.repl.Update(ctx, externalID, func(ctx context.Context) (domain.Order, error) {
		o, err := s.store.UpdateOrder(ctx, externalID, w)
		if err != nil {
			return domain.Order{}, storeError("update order", "order", externalID, err)
		}
		s.logger.Info("order updated", "external_id", externalID)
		return o, nil
	})
}

// Delete removes the order.
func (s *OrderService) Delete(ctx context.Context, externalID string) error {
	externalID = pathID(externalID)
	return s.repl.Delete(ctx, externalID, func(ctx context.Context) error {
		if err := s.store.DeleteOrder(ctx, externalID); err != nil {
			return storeError("delete order", "order", externalID, err)
		}
		s.logger.Info("order deleted", "external_id", externalID)
		return nil
	})
}

// Get returns one order.
func (s *OrderService) Get(ctx context.Context, externalID string) (domain.Order, error) {
	externalID = pathID(externalID)
	o, err := s.store.GetOrder(ctx, externalID)
	if err != nil {
		return domain.Order{}, storeError("get order", "order", externalID, err)
	}
	return o, nil
}

// List returns all orders.
func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, storeError("list orders", "order", "", err)
	}
	return orders, nil
}

func orderWrite(ctx context.Context, in domain.OrderEnvelope) store.OrderWrite {
	return store.OrderWrite{
		ExternalID:       in.ExternalID,
		Description:      in.Description,
		Value:            *in.Value,
		UserExternalID:   in.UserExternalID,
		Agent:            in.Agent(),
		MaterializeAgent: replication.IsPropagated(ctx),
	}
}
