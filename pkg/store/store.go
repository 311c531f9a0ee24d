// Package store is the evidence store: a transactional repository over the
// task/query/page/fragment/claim/edge/job graph, backed directly by
// jackc/pgx/v5 rather than a code-generated ORM.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openveritas/veritas/pkg/verrors"
)

// Retry configuration for transient transaction failures. Mirrors the
// jittered-backoff shape the teacher uses for MCP call recovery, generalized
// to Postgres serialization/deadlock retries.
const (
	maxRetries     = 3
	retryBackoffMin = 20 * time.Millisecond
	retryBackoffMax = 120 * time.Millisecond
)

// Store wraps a pooled Postgres connection and exposes the evidence-graph
// repository operations named in the evidence store component design.
type Store struct {
	pool *pgxpool.Pool
}

// New builds a Store over an already-connected pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside a short transaction, retrying transient failures
// (serialization failures, deadlocks, and connection resets) with bounded
// jittered backoff before surfacing a verrors.Transient error. Any other
// failure surfaces as verrors.Fatal, matching the store-corruption /
// invariant-violation error case.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffMin + time.Duration(rand.Int64N(int64(retryBackoffMax-retryBackoffMin)))
			select {
			case <-ctx.Done():
				return verrors.Wrap(verrors.Fatal, "store: context cancelled during retry", ctx.Err())
			case <-time.After(backoff):
			}
		}

		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return verrors.Wrap(verrors.Fatal, "store: transaction failed", err)
		}

		slog.Warn("store: retrying transient transaction failure",
			"attempt", attempt+1, "max_retries", maxRetries, "error", err)
	}
	return verrors.Wrap(verrors.Transient, "store: transaction failed after retries", lastErr)
}

func (s *Store) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isRetryable classifies Postgres serialization/deadlock failures and
// network-level resets as transient, matching class 40001/40P01 per the
// store's failure model.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
		return false
	}
	return errors.Is(err, io.EOF) || errors.Is(err, pgx.ErrTxClosed)
}

// Pool exposes the underlying pool for components that need read-only
// ad-hoc queries outside a transaction (the ranking engine's BM25 stage).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
