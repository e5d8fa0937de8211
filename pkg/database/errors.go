package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors for the store. Handlers translate these to HTTP status
// codes; use errors.Is for checks.
var (
	// ErrNotFound is returned when a row does not exist or is owned by a
	// different user. Callers must not be able to tell the two apart.
	ErrNotFound = errors.New("database: record not found")

	// ErrDuplicate is returned on unique constraint violations (duplicate
	// tag name for a user, duplicate bookmark-tag association).
	ErrDuplicate = errors.New("database: duplicate key")

	// ErrForeignKey is returned on foreign key violations.
	ErrForeignKey = errors.New("database: foreign key violation")

	// ErrInvalid is returned when a write fails entity validation
	// (malformed URL, empty tag name).
	ErrInvalid = errors.New("database: invalid input")
)

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
func IsInvalid(err error) bool   { return errors.Is(err, ErrInvalid) }

// PostgreSQL SQLSTATE codes.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError translates driver errors into the package sentinels, keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pqErr.Constraint)
		}
	}
	return err
}
