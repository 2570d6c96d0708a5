package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("unique constraint violation")
	// ErrValueTooLong is a value exceeding its column length.
	ErrValueTooLong = errors.New("value too long for column")
	ErrCheckFailed  = errors.New("check constraint violation")
)

// Constraint names from the migrations, matched against unique violations.
const (
	ConstraintTenantSubdomain = "tenants_subdomain_key"
	ConstraintUserEmail       = "users_email_key"
	ConstraintTokenUser       = "auth_tokens_user_id_key"
)

// ConstraintError is a unique violation on a named constraint. It unwraps to ErrConflict.
type ConstraintError struct {
	Constraint string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("unique constraint violation: %s", e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return ErrConflict
}

// IsConstraint reports whether err is a unique violation on constraint.
func IsConstraint(err error, constraint string) bool {
	var cerr *ConstraintError
	return errors.As(err, &cerr) && cerr.Constraint == constraint
}

// mapError converts driver errors into store sentinels. Unknown errors are
// returned with the postgres details attached.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &ConstraintError{Constraint: pgErr.ConstraintName}
	case pgerrcode.StringDataRightTruncationDataException:
		return fmt.Errorf("%w: %s", ErrValueTooLong, pgErr.Message)
	case pgerrcode.CheckViolation:
		return fmt.Errorf("%w: %s", ErrCheckFailed, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Detail)
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)
	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)
	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, err)
	}
}
