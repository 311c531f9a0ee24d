package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openveritas/veritas/pkg/verrors"
)

// InsertClaim creates a new claim in the pending state, without any origin
// edge. Nothing at the store level makes the caller add one; callers that
// need the "every claim has an origin edge" invariant use
// InsertClaimWithOrigin, which writes both in one transaction.
func (s *Store) InsertClaim(ctx context.Context, taskID uuid.UUID, text string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO claims (task_id, text) VALUES ($1, $2) RETURNING id`,
			taskID, text).Scan(&id)
	})
	return id, err
}

// ExtractedClaim is the parsed LLM extraction output for one claim, prior to
// store insertion.
type ExtractedClaim struct {
	Text           string
	Polarity       ClaimPolarity
	Granularity    ClaimGranularity
	RawConfidence  float64
}

// InsertClaimWithOrigin atomically creates a claim and its origin edges from
// the fragments it was extracted from, satisfying the "every claim has at
// least one origin edge" invariant in a single transaction.
func (s *Store) InsertClaimWithOrigin(ctx context.Context, taskID uuid.UUID, claim ExtractedClaim, originFragmentIDs []uuid.UUID) (uuid.UUID, error) {
	if len(originFragmentIDs) == 0 {
		return uuid.Nil, verrors.New(verrors.InvalidInput, "claim must have at least one origin fragment")
	}
	polarity := claim.Polarity
	if polarity == "" {
		polarity = PolarityAsserted
	}
	granularity := claim.Granularity
	if granularity == "" {
		granularity = GranularitySpecific
	}
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO claims (task_id, text, polarity, granularity, llm_claim_confidence_raw)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			taskID, claim.Text, polarity, granularity, claim.RawConfidence).Scan(&id); err != nil {
			return err
		}
		for _, fragID := range originFragmentIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO edges (fragment_id, claim_id, relation)
				VALUES ($1, $2, 'origin')
				ON CONFLICT (fragment_id, claim_id) WHERE relation = 'origin' DO NOTHING`,
				fragID, id); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// RejectClaim marks a claim rejected with an audited reason. Rejection is
// the only status change a claim undergoes after creation; the only other
// update is StoreClaimEmbedding.
func (s *Store) RejectClaim(ctx context.Context, id uuid.UUID, reason string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE claims SET status = 'rejected', rejected_reason = $2
			WHERE id = $1`, id, reason)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return verrors.Newf(verrors.InvalidInput, "claim %s not found", id)
		}
		return nil
	})
}

// GetClaim fetches a claim by id.
func (s *Store) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	var c Claim
	err := s.pool.QueryRow(ctx, `
		SELECT id, task_id, text, status, polarity, granularity, llm_claim_confidence_raw,
			embedding, rejected_reason, created_at
		FROM claims WHERE id = $1`, id).Scan(
		&c.ID, &c.TaskID, &c.Text, &c.Status, &c.Polarity, &c.Granularity, &c.RawConfidence,
		&c.Embedding, &c.RejectedReason, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClaimsForTask lists non-rejected claims for a task, for get_materials.
func (s *Store) ListClaimsForTask(ctx context.Context, taskID uuid.UUID) ([]Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, text, status, polarity, granularity, llm_claim_confidence_raw,
			embedding, rejected_reason, created_at
		FROM claims WHERE task_id = $1 AND status != 'rejected'
		ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Claim
	for rows.Next() {
		var c Claim
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Text, &c.Status, &c.Polarity, &c.Granularity,
			&c.RawConfidence, &c.Embedding, &c.RejectedReason, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// StoreClaimEmbedding persists a computed embedding for a claim.
func (s *Store) StoreClaimEmbedding(ctx context.Context, id uuid.UUID, embedding []byte) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE claims SET embedding = $2 WHERE id = $1`, id, embedding)
		return err
	})
}
