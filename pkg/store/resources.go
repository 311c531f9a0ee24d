package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClaimResource attempts to claim exclusive ownership of an external
// resource (URL, DOI, PMID) within a task so the same paper is not fetched
// twice concurrently. Implemented as insert-if-not-exists followed by a
// read, the same race-safe pattern claim_resource is specified to use.
func (s *Store) ClaimResource(ctx context.Context, taskID uuid.UUID, resourceType, resourceKey, workerID string) (ResourceClaim, error) {
	var claim ResourceClaim
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO resource_index (task_id, resource_type, resource_key, claimed_by, claimed_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (task_id, resource_type, resource_key) WHERE released_at IS NULL DO NOTHING`,
			taskID, resourceType, resourceKey, workerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			claim = ResourceClaim{Claimed: true, ClaimedBy: workerID}
			return nil
		}

		var owner string
		err = tx.QueryRow(ctx, `
			SELECT claimed_by FROM resource_index
			WHERE task_id = $1 AND resource_type = $2 AND resource_key = $3 AND released_at IS NULL`,
			taskID, resourceType, resourceKey).Scan(&owner)
		if err != nil {
			return err
		}
		claim = ResourceClaim{Claimed: false, ClaimedBy: owner}
		return nil
	})
	return claim, err
}

// ReleaseResource releases a previously claimed resource, allowing it to be
// re-claimed (used when a claiming worker dies without finishing).
func (s *Store) ReleaseResource(ctx context.Context, taskID uuid.UUID, resourceType, resourceKey string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE resource_index SET released_at = now()
			WHERE task_id = $1 AND resource_type = $2 AND resource_key = $3 AND released_at IS NULL`,
			taskID, resourceType, resourceKey)
		return err
	})
}
