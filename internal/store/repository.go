/**
 * @description
 * This file defines the PostgresRepository root and the error translation
 * shared by all query files. Driver errors never cross the store boundary:
 * unique violations surface as domain.ErrConflict and empty results as
 * domain.ErrNotFound, so the orchestrator can recover them as structured
 * failures.
 */
package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rizzosai/affiliate-service/internal/domain"
)

// PostgresRepository implements the repository interfaces consumed by the
// app layer.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a repository on top of an existing pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolationCode = "23505"

// translateError maps driver errors to the domain taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.ErrConflict
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
