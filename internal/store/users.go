package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/peersync/internal/domain"
)

const userColumns = `id, external_id, name, email`

// CreateUser inserts a user. in.ExternalID must already be set; the store
// never mints external identifiers.
func (s *Store) CreateUser(ctx context.Context, in domain.UserEnvelope) (domain.User, error) {
	var out domain.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (external_id, name, email)
			VALUES (?, ?, ?)
		`, in.ExternalID, in.Name, in.Email)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		out = domain.User{ID: id, ExternalID: in.ExternalID, Name: in.Name, Email: in.Email}
		return nil
	})
	if err != nil {
		return domain.User{}, classify("create user", err)
	}
	return out, nil
}

// UpdateUser overwrites the mutable fields of the user with the given
// external id. The external id itself never changes.
func (s *Store) UpdateUser(ctx context.Context, externalID string, in domain.UserEnvelope) (domain.User, error) {
	var out domain.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET name = ?, email = ?
			WHERE external_id = ?
		`, in.Name, in.Email, externalID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return notFound("user", externalID)
		}
		out, err = getUser(ctx, tx, externalID)
		return err
	})
	if err != nil {
		return domain.User{}, classify("update user", err)
	}
	return out, nil
}

// DeleteUser removes the user with the given external id. Orders placed by
// the user are removed with it (ON DELETE CASCADE).
func (s *Store) DeleteUser(ctx context.Context, externalID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE external_id = ?`, externalID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return notFound("user", externalID)
		}
		return nil
	})
	return classify("delete user", err)
}

// GetUser retrieves a user by external id.
func (s *Store) GetUser(ctx context.Context, externalID string) (domain.User, error) {
	u, err := getUser(ctx, s.db, externalID)
	if err != nil {
		return domain.User{}, classify("get user", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by private id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func getUser(ctx context.Context, q queryer, externalID string) (domain.User, error) {
	var u domain.User
	err := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID).
		Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return domain.User{}, notFound("user", externalID)
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
