package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertPage inserts a page keyed by (task_id, canonical_url), returning the
// existing row's id with is_new=false on collision rather than raising.
func (s *Store) UpsertPage(ctx context.Context, taskID uuid.UUID, url, canonicalURL, domain, title string) (id uuid.UUID, isNew bool, err error) {
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO pages (task_id, url, canonical_url, domain, title)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (task_id, canonical_url) DO NOTHING
			RETURNING id`, taskID, url, canonicalURL, domain, title).Scan(&id)
		if err == nil {
			isNew = true
			return nil
		}
		if err != pgx.ErrNoRows {
			return err
		}
		// Collision: read back the existing row.
		return tx.QueryRow(ctx, `
			SELECT id FROM pages WHERE task_id = $1 AND canonical_url = $2`,
			taskID, canonicalURL).Scan(&id)
	})
	return id, isNew, err
}

// MarkPageFetched records a successful fetch.
func (s *Store) MarkPageFetched(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE pages SET status = 'fetched', fetched_at = now() WHERE id = $1`, id)
		return err
	})
}

// MarkPageFailed records a failed or blocked fetch.
func (s *Store) MarkPageFailed(ctx context.Context, id uuid.UUID, status PageStatus) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE pages SET status = $2 WHERE id = $1`, id, status)
		return err
	})
}

// GetPage fetches a page by id.
func (s *Store) GetPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	var p Page
	err := s.pool.QueryRow(ctx, `
		SELECT id, task_id, work_id, url, canonical_url, domain, title, status, fetched_at, created_at
		FROM pages WHERE id = $1`, id).Scan(
		&p.ID, &p.TaskID, &p.WorkID, &p.URL, &p.CanonicalURL, &p.Domain,
		&p.Title, &p.Status, &p.FetchedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
