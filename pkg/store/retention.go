package store

import (
	"context"
	"time"
)

// PurgeOldTasks deletes terminal tasks (satisfied/exhausted/cancelled/failed)
// older than retentionDays. Cascades to their queries/jobs/pages/fragments/
// claims/edges via the schema's foreign-key ON DELETE CASCADE, so a purged
// task takes its whole evidence subgraph with it.
func (s *Store) PurgeOldTasks(ctx context.Context, retentionDays int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE status IN ('satisfied', 'exhausted', 'cancelled', 'failed')
		  AND updated_at < now() - ($1 || ' days')::interval`, retentionDays)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// PurgeStaleJobs deletes completed/failed jobs older than ttl, keeping the
// jobs table from growing unbounded once a task's work has long settled.
func (s *Store) PurgeStaleJobs(ctx context.Context, ttl time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM jobs
		WHERE status IN ('completed', 'failed')
		  AND COALESCE(completed_at, created_at) < now() - $1 * interval '1 second'`, ttl.Seconds())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
