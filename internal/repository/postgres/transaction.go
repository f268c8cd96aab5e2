package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbor/internal/config"
	"arbor/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionManager runs units of work in SERIALIZABLE transactions and
// retries them on serialization failures, so two moves over overlapping
// subtrees can never commit an interleaved closure rebuild.
type TransactionManager struct {
	pool       *pgxpool.Pool
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(pool *pgxpool.Pool, logger *slog.Logger) repositories.TransactionManager {
	return &TransactionManager{
		pool:       pool,
		logger:     logger,
		maxRetries: config.MaxTxRetries,
		backoff:    config.TxRetryBackoff,
	}
}

// ExecTx executes fn within a transaction. A transaction already present in
// ctx is joined instead of nesting a new one.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if repositories.GetTx(ctx) != nil {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= tm.maxRetries; attempt++ {
		err = tm.execOnce(ctx, fn)
		if err == nil || !IsPgRetryableError(err) {
			return err
		}

		tm.logger.Warn("transaction conflict, retrying",
			"attempt", attempt,
			"max_attempts", tm.maxRetries,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tm.backoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", tm.maxRetries, err)
}

func (tm *TransactionManager) execOnce(ctx context.Context, fn repositories.TxFn) error {
	tx, err := tm.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Rollback after a successful commit is a no-op returning ErrTxClosed.
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			tm.logger.Error("rollback failed", "error", err)
		}
	}()

	if err := fn(repositories.SetTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
