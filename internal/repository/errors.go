package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds shared by every store implementation.
// Components decide their own policy per kind: the ledger fails on them,
// the badge engine swallows them per category, the rate limiter fails open.
var (
	ErrNotFound               = errors.New("not found")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrConstraintViolation    = errors.New("constraint violation")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrUnsupported            = errors.New("operation not supported")
)

// ErrUserNotFound is returned when the user aggregate does not exist.
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

// PostgreSQL SQLSTATE codes mapped onto the error kinds.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateInsufficientPrivs   = "42501"
	sqlStateUndefinedFunction   = "42883"
	sqlStateUndefinedTable      = "42P01"
	sqlStateConnectionException = "08000"
	sqlStateConnectionFailure   = "08006"
)

// classifyError wraps err with the matching error kind so callers can use errors.Is.
// Errors that do not match a kind are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case sqlStateInsufficientPrivs:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		case sqlStateUndefinedFunction, sqlStateUndefinedTable:
			return fmt.Errorf("%w: %w", ErrUnsupported, err)
		case sqlStateConnectionException, sqlStateConnectionFailure:
			return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) ||
		errors.As(err, &netErr) ||
		pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	return err
}
