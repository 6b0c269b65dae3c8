package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when an addressed or referenced row is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a UNIQUE constraint is violated.
	ErrConflict = errors.New("conflict")

	// ErrReferenced is returned when a foreign key constraint is violated.
	ErrReferenced = errors.New("referenced")
)

// NotFoundError names the missing row. errors.Is(err, ErrNotFound) is true.
type NotFoundError struct {
	Entity     string
	ExternalID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ExternalID)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity, externalID string) error {
	return &NotFoundError{Entity: entity, ExternalID: externalID}
}

// classify maps driver constraint errors onto the package sentinels. Other
// errors are wrapped with op unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w: %v", op, ErrReferenced, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
