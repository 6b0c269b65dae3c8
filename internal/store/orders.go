package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/peersync/internal/domain"
)

// OrderWrite is the resolved input of an order create or update. References
// are by external id; the store resolves them to private ids inside the
// write transaction.
type OrderWrite struct {
	ExternalID     string
	Description    string
	Value          domain.Money
	UserExternalID string

	// Agent identifies the delivery agent. Name and Phone are a snapshot
	// that is only used when MaterializeAgent is set.
	Agent domain.DeliveryInput

	// MaterializeAgent upserts the agent from the snapshot instead of
	// requiring it to exist. Set for writes arriving from the peer, which
	// carries agents only inside order envelopes.
	MaterializeAgent bool
}

const orderSelect = `
	SELECT o.id, o.external_id, o.description, o.value_cents,
	       o.user_id, o.delivery_agent_id,
	       u.external_id, d.external_id, d.name, d.phone
	FROM orders o
	JOIN users u ON u.id = o.user_id
	JOIN delivery_agents d ON d.id = o.delivery_agent_id
`

// CreateOrder inserts an order. w.ExternalID must be set.
func (s *Store) CreateOrder(ctx context.Context, w OrderWrite) (domain.Order, error) {
	var out domain.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, agentID, err := resolveOrderRefs(ctx, tx, w)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (external_id, description, value_cents, user_id, delivery_agent_id)
			VALUES (?, ?, ?, ?, ?)
		`, w.ExternalID, w.Description, int64(w.Value), userID, agentID)
		if err != nil {
			return err
		}
		out, err = getOrder(ctx, tx, w.ExternalID)
		return err
	})
	if err != nil {
		return domain.Order{}, classify("create order", err)
	}
	return out, nil
}

// UpdateOrder overwrites the order with the given external id.
func (s *Store) UpdateOrder(ctx context.Context, externalID string, w OrderWrite) (domain.Order, error) {
	var out domain.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getOrder(ctx, tx, externalID); err != nil {
			return err
		}
		userID, agentID, err := resolveOrderRefs(ctx, tx, w)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET description = ?, value_cents = ?, user_id = ?, delivery_agent_id = ?
			WHERE external_id = ?
		`, w.Description, int64(w.Value), userID, agentID, externalID)
		if err != nil {
			return err
		}
		out, err = getOrder(ctx, tx, externalID)
		return err
	})
	if err != nil {
		return domain.Order{}, classify("update order", err)
	}
	return out, nil
}

// DeleteOrder removes the order with the given external id.
func (s *Store) DeleteOrder(ctx context.Context, externalID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE external_id = ?`, externalID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return notFound("order", externalID)
		}
		return nil
	})
	return classify("delete order", err)
}

// GetOrder retrieves an order by external id.
func (s *Store) GetOrder(ctx context.Context, externalID string) (domain.Order, error) {
	o, err := getOrder(ctx, s.db, externalID)
	if err != nil {
		return domain.Order{}, classify("get order", err)
	}
	return o, nil
}

// ListOrders returns all orders ordered by private id.
func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, orderSelect+` ORDER BY o.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// resolveOrderRefs maps the user and agent external ids of w to private ids.
func resolveOrderRefs(ctx context.Context, tx *sql.Tx, w OrderWrite) (userID, agentID int64, err error) {
	user, err := getUser(ctx, tx, w.UserExternalID)
	if err != nil {
		return 0, 0, err
	}
	agentID, err = resolveAgent(ctx, tx, w.Agent, w.MaterializeAgent)
	if err != nil {
		return 0, 0, err
	}
	return user.ID, agentID, nil
}

func resolveAgent(ctx context.Context, tx *sql.Tx, agent domain.DeliveryInput, materialize bool) (int64, error) {
	hasSnapshot := agent.Name != "" && agent.Phone != ""

	existing, err := getDelivery(ctx, tx, agent.ExternalID)
	switch {
	case err == nil:
		if materialize && hasSnapshot && (existing.Name != agent.Name || existing.Phone != agent.Phone) {
			if _, err := updateDelivery(ctx, tx, agent.ExternalID, agent); err != nil {
				return 0, err
			}
		}
		return existing.ID, nil
	case materialize && hasSnapshot && isNotFound(err):
		created, err := insertDelivery(ctx, tx, agent)
		if err != nil {
			return 0, err
		}
		return created.ID, nil
	default:
		return 0, err
	}
}

func isNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (domain.Order, error) {
	var o domain.Order
	var cents int64
	err := r.Scan(
		&o.ID, &o.ExternalID, &o.Description, &cents,
		&o.UserID, &o.DeliveryAgentID,
		&o.UserExternalID, &o.DeliveryExternalID, &o.DeliveryName, &o.DeliveryPhone,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Value = domain.Money(cents)
	return o, nil
}

func getOrder(ctx context.Context, q queryer, externalID string) (domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, orderSelect+` WHERE o.external_id = ?`, externalID))
	if err == sql.ErrNoRows {
		return domain.Order{}, notFound("order", externalID)
	}
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}
