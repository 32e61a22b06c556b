// internal/store/postgres/errors.go
package postgres

import (
	"errors"
	"fmt"

	"libralend/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify maps driver errors onto domain errors, whichever driver produced them.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict) || sqlState(err) == codeSerializationFailure || sqlState(err) == codeDeadlockDetected
}
