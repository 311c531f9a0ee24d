package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertExtractionError records a claim-extraction validation or LLM
// failure for a page, per the extraction engine's give-up-and-log path.
func (s *Store) InsertExtractionError(ctx context.Context, pageID uuid.UUID, stage, errorKind, message string, attempt int) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO extraction_errors (page_id, stage, error_kind, message, attempt)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, pageID, stage, errorKind, message, attempt).Scan(&id)
	})
	return id, err
}

// ExtractionErrorsForPage lists recorded extraction errors for a page,
// newest first.
func (s *Store) ExtractionErrorsForPage(ctx context.Context, pageID uuid.UUID) ([]ExtractionError, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, page_id, stage, error_kind, message, attempt, created_at
		FROM extraction_errors WHERE page_id = $1 ORDER BY created_at DESC`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []ExtractionError
	for rows.Next() {
		var e ExtractionError
		if err := rows.Scan(&e.ID, &e.PageID, &e.Stage, &e.ErrorKind, &e.Message, &e.Attempt, &e.CreatedAt); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}
