package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openveritas/veritas/pkg/verrors"
)

// SuspendJobForAuth transitions a job to awaiting_auth and files a durable
// auth-queue entry for it, per S3's fetcher-hits-a-login-wall scenario.
func (s *Store) SuspendJobForAuth(ctx context.Context, taskID, jobID uuid.UUID, url string) (uuid.UUID, error) {
	var queueID uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE jobs SET status = 'awaiting_auth' WHERE id = $1`, jobID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO auth_queue (task_id, job_id, url)
			VALUES ($1, $2, $3) RETURNING id`, taskID, jobID, url).Scan(&queueID)
	})
	return queueID, err
}

// ResolveAuth re-queues the suspended job behind an auth-queue entry,
// marking the entry resolved.
func (s *Store) ResolveAuth(ctx context.Context, queueID uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var jobID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE auth_queue SET resolved_at = now()
			WHERE id = $1 AND resolved_at IS NULL
			RETURNING job_id`, queueID).Scan(&jobID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return verrors.Newf(verrors.InvalidInput, "auth queue entry %s not found or already resolved", queueID)
			}
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE jobs SET status = 'queued' WHERE id = $1`, jobID)
		return err
	})
}

// ListPendingAuth lists unresolved auth-queue entries for a task.
func (s *Store) ListPendingAuth(ctx context.Context, taskID uuid.UUID) ([]AuthQueueEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, job_id, url, created_at, resolved_at
		FROM auth_queue WHERE task_id = $1 AND resolved_at IS NULL
		ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuthQueueEntry
	for rows.Next() {
		var e AuthQueueEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.JobID, &e.URL, &e.CreatedAt, &e.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
