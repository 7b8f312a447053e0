package postgres

import (
	"errors"
	"fmt"

	"inventory-admin/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// mapError translates driver errors into the core sentinels. what names the row for the message.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s already exists", core.ErrConflict, what)
		case foreignKeyViolation:
			// Usually an actor whose account was deleted while their token is still valid.
			return fmt.Errorf("%w: %s references a missing user or product", core.ErrNotFound, what)
		}
	}
	return err
}
