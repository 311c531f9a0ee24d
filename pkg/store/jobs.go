package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnqueueJob inserts a new job in the queued state.
func (s *Store) EnqueueJob(ctx context.Context, taskID uuid.UUID, kind JobKind, slot JobSlot, domain *string, payload []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO jobs (task_id, kind, slot, domain, payload)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, taskID, kind, slot, domain, payload).Scan(&id)
	})
	return id, err
}

// ClaimNextJob atomically claims the oldest queued job matching the given
// kinds (priority order, caller-supplied) using SELECT ... FOR UPDATE SKIP
// LOCKED, the same race-safe claim pattern the teacher's worker pool uses
// for alert sessions. Returns nil, nil if nothing is available.
func (s *Store) ClaimNextJob(ctx context.Context, kinds []JobKind, claimedBy string) (*Job, error) {
	var job *Job
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id FROM jobs
			WHERE status = 'queued' AND kind = ANY($1)
			ORDER BY array_position($1::text[], kind), created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1`, jobKindsToStrings(kinds))
		var id uuid.UUID
		if err := row.Scan(&id); err != nil {
			if err == pgx.ErrNoRows {
				return nil
			}
			return err
		}

		var j Job
		err := tx.QueryRow(ctx, `
			UPDATE jobs SET status = 'claimed', claimed_by = $2, claimed_at = now(), heartbeat_at = now()
			WHERE id = $1
			RETURNING id, task_id, kind, slot, domain, status, payload, attempts,
				last_error, claimed_by, claimed_at, heartbeat_at, created_at, completed_at`,
			id, claimedBy).Scan(
			&j.ID, &j.TaskID, &j.Kind, &j.Slot, &j.Domain, &j.Status, &j.Payload, &j.Attempts,
			&j.LastError, &j.ClaimedBy, &j.ClaimedAt, &j.HeartbeatAt, &j.CreatedAt, &j.CompletedAt)
		if err != nil {
			return err
		}
		job = &j
		return nil
	})
	return job, err
}

func jobKindsToStrings(kinds []JobKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// Heartbeat refreshes a claimed job's liveness timestamp so the orphan
// detector does not reclaim it.
func (s *Store) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE jobs SET heartbeat_at = now() WHERE id = $1 AND status IN ('claimed', 'running')`, id)
		return err
	})
}

// MarkJobRunning transitions a claimed job to running.
func (s *Store) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE jobs SET status = 'running', heartbeat_at = now() WHERE id = $1`, id)
		return err
	})
}

// CompleteJob marks a job completed.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE jobs SET status = 'completed', completed_at = now() WHERE id = $1`, id)
		return err
	})
}

// CancelJob marks a running/claimed job cancelled, used when a stop_task
// cancellation reaches a job already in flight.
func (s *Store) CancelJob(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE jobs SET status = 'cancelled', completed_at = now()
			WHERE id = $1`, id)
		return err
	})
}

// FailJob marks a job failed and records the error and attempt count. If
// requeue is true the job is reset to queued for a retry instead.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string, requeue bool) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		status := "failed"
		if requeue {
			status = "queued"
		}
		_, err := tx.Exec(ctx, `
			UPDATE jobs SET status = $2, last_error = $3, attempts = attempts + 1,
				claimed_by = CASE WHEN $2 = 'queued' THEN NULL ELSE claimed_by END,
				claimed_at = CASE WHEN $2 = 'queued' THEN NULL ELSE claimed_at END
			WHERE id = $1`, id, status, errMsg)
		return err
	})
}

// ReclaimOrphans resets jobs whose heartbeat is older than threshold back to
// queued, returning the number reclaimed. Mirrors the teacher's queue orphan
// detector, generalized from session rows to job rows.
func (s *Store) ReclaimOrphans(ctx context.Context, staleSeconds int) (int, error) {
	var n int
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE jobs SET status = 'queued', claimed_by = NULL, claimed_at = NULL, heartbeat_at = NULL
			WHERE status IN ('claimed', 'running')
				AND heartbeat_at < now() - ($1 || ' seconds')::interval`, staleSeconds)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

// CancelQueuedJobsForTask cancels every job for a task that has not yet
// started running, used by stop_task. Jobs already claimed/running are left
// alone — they drain naturally or get reclaimed as orphans.
func (s *Store) CancelQueuedJobsForTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	var n int
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE jobs SET status = 'cancelled'
			WHERE task_id = $1 AND status IN ('queued', 'awaiting_auth')`, taskID)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

// JobQueueCounts returns the number of jobs for a task grouped by status, for
// get_status's queue summary.
func (s *Store) JobQueueCounts(ctx context.Context, taskID uuid.UUID) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*) FROM jobs WHERE task_id = $1 GROUP BY status`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountActiveJobsBySlot returns the number of jobs currently claimed/running
// for a slot, used by the scheduler's slot-exclusivity bookkeeping.
func (s *Store) CountActiveJobsBySlot(ctx context.Context, slot JobSlot) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM jobs WHERE slot = $1 AND status IN ('claimed', 'running')`, slot).Scan(&n)
	return n, err
}

// CountActiveJobsByDomain returns the number of network_client jobs active
// for a domain, used to enforce the per-domain concurrency limit.
func (s *Store) CountActiveJobsByDomain(ctx context.Context, domain string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM jobs
		WHERE slot = 'network_client' AND domain = $1 AND status IN ('claimed', 'running')`, domain).Scan(&n)
	return n, err
}
