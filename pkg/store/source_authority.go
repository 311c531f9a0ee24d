package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DomainCategory returns the source-authority category for a domain,
// defaulting to "UNVERIFIED" when the domain has no recorded entry.
func (s *Store) DomainCategory(ctx context.Context, domain string) (string, error) {
	var category string
	err := s.pool.QueryRow(ctx, `SELECT category FROM source_authority WHERE domain = $1`, domain).Scan(&category)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "UNVERIFIED", nil
		}
		return "", err
	}
	return category, nil
}

// SetDomainCategory upserts a domain's source-authority category, used for
// operator-curated overrides (e.g. marking a government domain PRIMARY).
func (s *Store) SetDomainCategory(ctx context.Context, domain, category string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO source_authority (domain, category)
			VALUES ($1, $2)
			ON CONFLICT (domain) DO UPDATE SET category = $2, updated_at = now()`, domain, category)
		return err
	})
}
