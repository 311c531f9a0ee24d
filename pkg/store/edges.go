package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertEdge creates a typed edge from a fragment to a claim, enforcing the
// uniqueness invariant for origin and NLI relations: on duplicate, the
// existing edge id is returned rather than raising.
func (s *Store) InsertEdge(ctx context.Context, fragmentID, claimID uuid.UUID, relation EdgeRelation, confidence *float64, calibrationVersion *int) (id uuid.UUID, wasNew bool, err error) {
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		var conflictClause string
		switch relation {
		case RelationOrigin:
			conflictClause = `ON CONFLICT (fragment_id, claim_id) WHERE relation = 'origin' DO NOTHING`
		case RelationSupports, RelationRefutes, RelationNeutral:
			conflictClause = `ON CONFLICT (fragment_id, claim_id, relation) WHERE relation IN ('supports', 'refutes', 'neutral') DO NOTHING`
		default:
			conflictClause = ""
		}

		query := `
			INSERT INTO edges (fragment_id, claim_id, relation, confidence, calibration_version)
			VALUES ($1, $2, $3, $4, $5)
			` + conflictClause + `
			RETURNING id`
		err := tx.QueryRow(ctx, query, fragmentID, claimID, relation, confidence, calibrationVersion).Scan(&id)
		if err == nil {
			wasNew = true
			return nil
		}
		if err != pgx.ErrNoRows {
			return err
		}
		// Conflict hit: read back the existing edge for this pair/relation.
		var lookup string
		switch relation {
		case RelationOrigin:
			lookup = `SELECT id FROM edges WHERE fragment_id = $1 AND claim_id = $2 AND relation = 'origin'`
			return tx.QueryRow(ctx, lookup, fragmentID, claimID).Scan(&id)
		default:
			lookup = `SELECT id FROM edges WHERE fragment_id = $1 AND claim_id = $2 AND relation = $3`
			return tx.QueryRow(ctx, lookup, fragmentID, claimID, relation).Scan(&id)
		}
	})
	return id, wasNew, err
}

// GetEdge fetches an edge by id.
func (s *Store) GetEdge(ctx context.Context, id uuid.UUID) (*Edge, error) {
	var e Edge
	err := s.pool.QueryRow(ctx, `
		SELECT id, fragment_id, claim_id, relation, confidence, calibration_version, created_at
		FROM edges WHERE id = $1`, id).Scan(
		&e.ID, &e.FragmentID, &e.ClaimID, &e.Relation, &e.Confidence, &e.CalibrationVersion, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EdgesForClaim returns all edges touching a claim, used by the verifier to
// enumerate previously-verified (fragment, claim) pairs before scheduling
// new NLI jobs.
func (s *Store) EdgesForClaim(ctx context.Context, claimID uuid.UUID) ([]Edge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fragment_id, claim_id, relation, confidence, calibration_version, created_at
		FROM edges WHERE claim_id = $1`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.FragmentID, &e.ClaimID, &e.Relation, &e.Confidence, &e.CalibrationVersion, &e.CreatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
