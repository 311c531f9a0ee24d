package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FragmentInput is a single fragment to persist, prior to id assignment.
type FragmentInput struct {
	Text          string
	HeadingPath   []string
	PositionIndex int
	IsAbstract    bool
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// InsertFragments batch-persists fragments for a page, deduplicating by
// text_hash both within the batch and against fragments already stored for
// the page, so re-ingestion of the same page is idempotent.
func (s *Store) InsertFragments(ctx context.Context, pageID uuid.UUID, fragments []FragmentInput) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(fragments))
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT text FROM fragments WHERE page_id = $1`, pageID)
		if err != nil {
			return err
		}
		seen := make(map[string]bool)
		for rows.Next() {
			var text string
			if err := rows.Scan(&text); err != nil {
				rows.Close()
				return err
			}
			seen[textHash(text)] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, f := range fragments {
			h := textHash(f.Text)
			if seen[h] {
				continue
			}
			seen[h] = true

			var id uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO fragments (page_id, text, heading_path, position_index, is_abstract)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`, pageID, f.Text, f.HeadingPath, f.PositionIndex, f.IsAbstract).Scan(&id)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// StoreFragmentEmbedding persists a computed embedding for a fragment.
func (s *Store) StoreFragmentEmbedding(ctx context.Context, id uuid.UUID, embedding []byte) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE fragments SET embedding = $2 WHERE id = $1`, id, embedding)
		return err
	})
}

// GetFragment fetches a fragment by id.
func (s *Store) GetFragment(ctx context.Context, id uuid.UUID) (*Fragment, error) {
	var f Fragment
	err := s.pool.QueryRow(ctx, `
		SELECT id, page_id, text, heading_path, position_index, is_abstract, embedding, created_at
		FROM fragments WHERE id = $1`, id).Scan(
		&f.ID, &f.PageID, &f.Text, &f.HeadingPath, &f.PositionIndex, &f.IsAbstract, &f.Embedding, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
