package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateFullTextIndexes creates the GIN indexes backing the BM25
// approximation stage of the ranking pipeline (ts_rank_cd over
// to_tsvector). Expressed as raw SQL here rather than a numbered
// migration because it must run after the base schema migrations and is
// idempotent (IF NOT EXISTS) regardless of migration ordering.
func CreateFullTextIndexes(ctx context.Context, db *sql.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{
			name: "fragments_text_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_fragments_text_gin
				ON fragments USING gin(to_tsvector('english', text))`,
		},
		{
			name: "pages_title_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_pages_title_gin
				ON pages USING gin(to_tsvector('english', COALESCE(title, '')))`,
		},
		{
			name: "claims_text_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_claims_text_gin
				ON claims USING gin(to_tsvector('english', text))`,
		},
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s index: %w", stmt.name, err)
		}
	}

	return nil
}
