package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertWork inserts a work keyed by (source_provider, external_id),
// returning the existing row's id on collision rather than duplicating it —
// the same cross-source dedup the DOI unique index provides for papers two
// providers both resolved to the same identifier.
func (s *Store) UpsertWork(ctx context.Context, w Work) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO works (title, doi, venue, year, citation_count, source_provider, external_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (source_provider, external_id) DO UPDATE SET
				title = EXCLUDED.title, venue = EXCLUDED.venue, year = EXCLUDED.year,
				citation_count = EXCLUDED.citation_count
			RETURNING id`,
			w.Title, w.DOI, w.Venue, w.Year, w.CitationCount, w.SourceProvider, w.ExternalID).Scan(&id)
		return err
	})
	return id, err
}

// SetWorkAuthors replaces a work's ordered author list.
func (s *Store) SetWorkAuthors(ctx context.Context, workID uuid.UUID, authors []string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM work_authors WHERE work_id = $1`, workID); err != nil {
			return err
		}
		for i, name := range authors {
			if _, err := tx.Exec(ctx, `
				INSERT INTO work_authors (work_id, author_name, position) VALUES ($1, $2, $3)`,
				workID, name, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetWork fetches a work by id.
func (s *Store) GetWork(ctx context.Context, id uuid.UUID) (*Work, error) {
	var w Work
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, doi, venue, year, citation_count, source_provider, external_id, created_at
		FROM works WHERE id = $1`, id).Scan(
		&w.ID, &w.Title, &w.DOI, &w.Venue, &w.Year, &w.CitationCount,
		&w.SourceProvider, &w.ExternalID, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LinkPageToWork associates a fetched page with the bibliographic work it
// represents.
func (s *Store) LinkPageToWork(ctx context.Context, pageID, workID uuid.UUID) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE pages SET work_id = $2 WHERE id = $1`, pageID, workID)
		return err
	})
}

// CanonicalID derives a work's canonical identifier: doi:…, pmid:…, arxiv:…,
// or a title hash when no stronger identifier is available — the form the
// data model uses to deduplicate the same paper surfaced by different
// providers.
func CanonicalID(w Work) string {
	if w.DOI != nil && *w.DOI != "" {
		return "doi:" + strings.ToLower(*w.DOI)
	}
	switch w.SourceProvider {
	case "arxiv":
		return "arxiv:" + w.ExternalID
	case "pubmed":
		return "pmid:" + w.ExternalID
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(w.Title))))
	return "title:" + hex.EncodeToString(sum[:8])
}
