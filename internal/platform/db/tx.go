package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// WithTx executes a function within a transaction using the RepeatableRead
// isolation level. The callback either commits as a whole or leaves no
// partial writes behind.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapTxError(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// mapTxError translates serialization failures (40001) and deadlocks (40P01)
// into ErrConflict. Under RepeatableRead the losing side of a concurrent
// update on one row surfaces as SQLSTATE 40001 from the blocked statement,
// not as zero rows affected, so the caller must be told to retry with fresh
// data rather than see an internal error.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%s: %w", pgErr.Message, shared.ErrConflict)
	}
	return err
}
