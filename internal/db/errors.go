package db

import (
	"errors"
	"fmt"
	"net"

	"repair-desk/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// mapError translates driver errors into the core error taxonomy. Errors it
// does not recognise are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &core.UniquenessConflictError{Constraint: pgErr.ConstraintName}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &core.StoreUnavailableError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &core.StoreUnavailableError{Err: err}
	}
	return err
}

// notFound wraps pgx.ErrNoRows as core.ErrNotFound.
func notFound(err error, kind string, key any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", kind, key, core.ErrNotFound)
	}
	return mapError(fmt.Errorf("failed to load %s %v: %w", kind, key, err))
}
