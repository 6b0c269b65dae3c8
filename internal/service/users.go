package service

import (
	"context"
	"log/slog"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/identity"
	"github.com/roach88/peersync/internal/replication"
)

// UserStore is the persistence used by UserService.
type UserStore interface {
	CreateUser(ctx context.Context, in domain.UserEnvelope) (domain.User, error)
	UpdateUser(ctx context.Context, externalID string, in domain.UserEnvelope) (domain.User, error)
	DeleteUser(ctx context.Context, externalID string) error
	GetUser(ctx context.Context, externalID string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// UserService implements user operations.
type UserService struct {
	store  UserStore
	repl   *replication.UserReplicator
	ids    identity.Generator
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(st UserStore, repl *replication.UserReplicator, ids identity.Generator, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: st, repl: repl, ids: ids, logger: logger}
}

// Create validates in and creates the user. A caller-supplied external id
// is kept; otherwise a new one is minted.
func (s *UserService) Create(ctx context.Context, in domain.UserEnvelope) (domain.User, error) {
	if err := in.Normalize(); err != nil {
		return domain.User{}, err
	}
	if in.ExternalID == "" {
		in.ExternalID = s.ids.Generate()
	}

	u, err := s.repl.Create(ctx, in.ExternalID, func(ctx context.Context) (domain.User, error) {
		u, err := s.store.CreateUser(ctx, in)
		if err != nil {
			return domain.User{}, storeError("create user", "user", in.ExternalID, err)
		}
		s.logger.Info("user created", "id", u.ID, "external_id", u.ExternalID)
		return u, nil
	})
	return u, err
}

// Update overwrites the user's name and email. The external id in the body,
// if any, is ignored in favour of externalID.
func (s *UserService) Update(ctx context.Context, externalID string, in domain.UserEnvelope) (domain.User, error) {
	externalID = pathID(externalID)
	in.ExternalID = ""
	if err := in.Normalize(); err != nil {
		return domain.User{}, err
	}

	return s.repl.Update(ctx, externalID, func(ctx context.Context) (domain.User, error) {
		u, err := s.store.UpdateUser(ctx, externalID, in)
		if err != nil {
			return domain.User{}, storeError("update user", "user", externalID, err)
		}
		s.logger.Info("user updated", "external_id", externalID)
		return u, nil
	})
}

// Delete removes the user and, locally, its orders.
func (s *UserService) Delete(ctx context.Context, externalID string) error {
	externalID = pathID(externalID)
	return s.repl.Delete(ctx, externalID, func(ctx context.Context) error {
		if err := s.store.DeleteUser(ctx, externalID); err != nil {
			return storeError("delete user", "user", externalID, err)
		}
		s.logger.Info("user deleted", "external_id", externalID)
		return nil
	})
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, externalID string) (domain.User, error) {
	externalID = pathID(externalID)
	u, err := s.store.GetUser(ctx, externalID)
	if err != nil {
		return domain.User{}, storeError("get user", "user", externalID, err)
	}
	return u, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", "user", "", err)
	}
	return users, nil
}
