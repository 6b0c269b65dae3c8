package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/peersync/internal/domain"
)

const deliveryColumns = `id, external_id, name, phone`

// CreateDelivery inserts a delivery agent. in.ExternalID must be set.
func (s *Store) CreateDelivery(ctx context.Context, in domain.DeliveryInput) (domain.DeliveryAgent, error) {
	var out domain.DeliveryAgent
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = insertDelivery(ctx, tx, in)
		return err
	})
	if err != nil {
		return domain.DeliveryAgent{}, classify("create delivery agent", err)
	}
	return out, nil
}

// UpdateDelivery overwrites name and phone of the agent with the given
// external id.
func (s *Store) UpdateDelivery(ctx context.Context, externalID string, in domain.DeliveryInput) (domain.DeliveryAgent, error) {
	var out domain.DeliveryAgent
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := updateDelivery(ctx, tx, externalID, in)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("delivery agent", externalID)
		}
		out, err = getDelivery(ctx, tx, externalID)
		return err
	})
	if err != nil {
		return domain.DeliveryAgent{}, classify("update delivery agent", err)
	}
	return out, nil
}

// DeleteDelivery removes the agent with the given external id. Fails with
// ErrReferenced while orders still point at the agent.
func (s *Store) DeleteDelivery(ctx context.Context, externalID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM delivery_agents WHERE external_id = ?`, externalID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return notFound("delivery agent", externalID)
		}
		return nil
	})
	return classify("delete delivery agent", err)
}

// GetDelivery retrieves a delivery agent by external id.
func (s *Store) GetDelivery(ctx context.Context, externalID string) (domain.DeliveryAgent, error) {
	d, err := getDelivery(ctx, s.db, externalID)
	if err != nil {
		return domain.DeliveryAgent{}, classify("get delivery agent", err)
	}
	return d, nil
}

// ListDeliveries returns all delivery agents ordered by private id.
func (s *Store) ListDeliveries(ctx context.Context) ([]domain.DeliveryAgent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deliveryColumns+` FROM delivery_agents ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query delivery agents: %w", err)
	}
	defer rows.Close()

	agents := []domain.DeliveryAgent{}
	for rows.Next() {
		var d domain.DeliveryAgent
		if err := rows.Scan(&d.ID, &d.ExternalID, &d.Name, &d.Phone); err != nil {
			return nil, fmt.Errorf("scan delivery agent: %w", err)
		}
		agents = append(agents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery agents: %w", err)
	}
	return agents, nil
}

func insertDelivery(ctx context.Context, tx *sql.Tx, in domain.DeliveryInput) (domain.DeliveryAgent, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO delivery_agents (external_id, name, phone)
		VALUES (?, ?, ?)
	`, in.ExternalID, in.Name, in.Phone)
	if err != nil {
		return domain.DeliveryAgent{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.DeliveryAgent{}, fmt.Errorf("last insert id: %w", err)
	}
	return domain.DeliveryAgent{ID: id, ExternalID: in.ExternalID, Name: in.Name, Phone: in.Phone}, nil
}

func updateDelivery(ctx context.Context, tx *sql.Tx, externalID string, in domain.DeliveryInput) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE delivery_agents SET name = ?, phone = ?
		WHERE external_id = ?
	`, in.Name, in.Phone, externalID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func getDelivery(ctx context.Context, q queryer, externalID string) (domain.DeliveryAgent, error) {
	var d domain.DeliveryAgent
	err := q.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM delivery_agents WHERE external_id = ?`, externalID).
		Scan(&d.ID, &d.ExternalID, &d.Name, &d.Phone)
	if err == sql.ErrNoRows {
		return domain.DeliveryAgent{}, notFound("delivery agent", externalID)
	}
	if err != nil {
		return domain.DeliveryAgent{}, err
	}
	return d, nil
}
