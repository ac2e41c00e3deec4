package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"pura-pata-api/internal/domain/apperr"
)

// mapError traduce errores de pgx/database/sql a errores de dominio.
// Errores de context pasan tal cual (envueltos).
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, apperr.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, apperr.ErrDuplicate)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: referenced row %w", entity, id, apperr.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w: %s", entity, id, apperr.ErrValidation, pgErr.ConstraintName)
		case "22P02": // invalid_text_representation (p.ej. uuid mal formado)
			return fmt.Errorf("%s %s: %w", entity, id, apperr.ErrNotFound)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
