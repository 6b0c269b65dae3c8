package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/store"
)

// storeError maps a store failure onto the domain taxonomy.
func storeError(op, entity, externalID string, err error) error {
	var nf *store.NotFoundError
	switch {
	case errors.As(err, &nf):
		return domain.NewNotFound(nf.Entity, nf.ExternalID)
	case errors.Is(err, store.ErrNotFound):
		return domain.NewNotFound(entity, externalID)
	case errors.Is(err, store.ErrConflict):
		e := domain.NewBadInput("%s conflicts with an existing %s", entity, entity)
		e.EntityID, e.Err = externalID, err
		return e
	case errors.Is(err, store.ErrReferenced):
		e := domain.NewBadInput("%s is still referenced", entity)
		e.EntityID, e.Err = externalID, err
		return e
	default:
		return domain.NewLocalPersistence(op, err)
	}
}

// pathID canonicalizes an external id taken from a URL. Ids that are not
// UUIDs are kept verbatim; the lookup then simply finds nothing.
func pathID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}
