package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openveritas/veritas/pkg/verrors"
)

// InsertTask creates a new task in the running state.
func (s *Store) InsertTask(ctx context.Context, queryText string, budgetTokens, budgetRequests *int64) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO tasks (query_text, budget_tokens, budget_requests)
			VALUES ($1, $2, $3)
			RETURNING id`, queryText, budgetTokens, budgetRequests).Scan(&id)
	})
	return id, err
}

// UpdateTaskStatus transitions a task's status. Terminal tasks are never
// mutated again by the caller, but the store does not itself enforce that —
// callers (the orchestrator) own lifecycle correctness.
func (s *Store) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status TaskStatus) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tasks SET status = $2, updated_at = now(),
				cancelled_at = CASE WHEN $2 = 'cancelled' THEN now() ELSE cancelled_at END
			WHERE id = $1`, id, status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return verrors.Newf(verrors.InvalidInput, "task %s not found", id)
		}
		return nil
	})
}

// GetTask fetches a task by id.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx, `
		SELECT id, status, query_text, budget_tokens, budget_requests,
			spent_tokens, spent_requests, novelty_stale_cycles,
			created_at, updated_at, cancelled_at
		FROM tasks WHERE id = $1`, id).Scan(
		&t.ID, &t.Status, &t.QueryText, &t.BudgetTokens, &t.BudgetRequests,
		&t.SpentTokens, &t.SpentRequests, &t.NoveltyStaleCycles,
		&t.CreatedAt, &t.UpdatedAt, &t.CancelledAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, verrors.Newf(verrors.InvalidInput, "task %s not found", id)
		}
		return nil, verrors.Wrap(verrors.Transient, "store: get_task", err)
	}
	return &t, nil
}

// RecordSpend increments a task's spent-budget counters, used by the
// orchestrator to enforce budget caps.
func (s *Store) RecordSpend(ctx context.Context, id uuid.UUID, tokens, requests int64) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE tasks SET spent_tokens = spent_tokens + $2,
				spent_requests = spent_requests + $3, updated_at = now()
			WHERE id = $1`, id, tokens, requests)
		return err
	})
}
