package service

import (
	"context"
	"log/slog"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/identity"
)

// DeliveryStore is the persistence used by DeliveryService.
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, in domain.DeliveryInput) (domain.DeliveryAgent, error)
	UpdateDelivery(ctx context.Context, externalID string, in domain.DeliveryInput) (domain.DeliveryAgent, error)
	DeleteDelivery(ctx context.Context, externalID string) error
	GetDelivery(ctx context.Context, externalID string) (domain.DeliveryAgent, error)
	ListDeliveries(ctx context.Context) ([]domain.DeliveryAgent, error)
}

// DeliveryService implements delivery agent operations. Agents are local;
// they reach the peer only as the snapshot inside order envelopes.
type DeliveryService struct {
	store  DeliveryStore
	ids    identity.Generator
	logger *slog.Logger
}

// NewDeliveryService creates a DeliveryService.
func NewDeliveryService(st DeliveryStore, ids identity.Generator, logger *slog.Logger) *DeliveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryService{store: st, ids: ids, logger: logger}
}

func (s *DeliveryService) Create(ctx context.Context, in domain.DeliveryInput) (domain.DeliveryAgent, error) {
	if err := in.Normalize(); err != nil {
		return domain.DeliveryAgent{}, err
	}
	if in.ExternalID == "" {
		in.ExternalID = s.ids.Generate()
	}
	d, err := s.store.CreateDelivery(ctx, in)
	if err != nil {
		return domain.DeliveryAgent{}, storeError("create delivery agent", "delivery agent", in.ExternalID, err)
	}
	s.logger.Info("delivery agent created", "id", d.ID, "external_id", d.ExternalID)
	return d, nil
}

func (s *DeliveryService) Update(ctx context.Context, externalID string, in domain.DeliveryInput) (domain.DeliveryAgent, error) {
	externalID = pathID(externalID)
	in.ExternalID = ""
	if err := in.Normalize(); err != nil {
		return domain.DeliveryAgent{}, err
	}
	d, err := s.store.UpdateDelivery(ctx, externalID, in)
	if err != nil {
		return domain.DeliveryAgent{}, storeError("update delivery agent", "delivery agent", externalID, err)
	}
	return d, nil
}

func (s *DeliveryService) Delete(ctx context.Context, externalID string) error {
	externalID = pathID(externalID)
	if err := s.store.DeleteDelivery(ctx, externalID); err != nil {
		return storeError("delete delivery agent", "delivery agent", externalID, err)
	}
	s.logger.Info("delivery agent deleted", "external_id", externalID)
	return nil
}

func (s *DeliveryService) Get(ctx context.Context, externalID string) (domain.DeliveryAgent, error) {
	externalID = pathID(externalID)
	d, err := s.store.GetDelivery(ctx, externalID)
	if err != nil {
		return domain.DeliveryAgent{}, storeError("get delivery agent", "delivery agent", externalID, err)
	}
	return d, nil
}

func (s *DeliveryService) List(ctx context.Context) ([]domain.DeliveryAgent, error) {
	agents, err := s.store.ListDeliveries(ctx)
	if err != nil {
		return nil, storeError("list delivery agents", "delivery agent", "", err)
	}
	return agents, nil
}
