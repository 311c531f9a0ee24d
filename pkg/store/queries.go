package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openveritas/veritas/pkg/verrors"
)

// InsertQuery creates a sub-search under a task. parentQueryID is nil for
// the task's initial query.
func (s *Store) InsertQuery(ctx context.Context, taskID uuid.UUID, text string, qType QueryType, parentQueryID *uuid.UUID, depth int) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO queries (task_id, text, type, parent_query_id, depth)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, taskID, text, qType, parentQueryID, depth).Scan(&id)
	})
	return id, err
}

// UpdateQueryStatus transitions a query's lifecycle status.
func (s *Store) UpdateQueryStatus(ctx context.Context, id uuid.UUID, status QueryStatus) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE queries SET status = $2 WHERE id = $1`, id, status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return verrors.Newf(verrors.InvalidInput, "query %s not found", id)
		}
		return nil
	})
}

// RecordQueryHarvest accumulates per-cycle harvest counters: pages fetched,
// fragments harvested, and how many of those fragments proved useful (fed a
// claim). independentDomains and hasPrimarySource are recomputed snapshots,
// not deltas, since they describe the query's current evidence set as a
// whole rather than this cycle's increment.
func (s *Store) RecordQueryHarvest(ctx context.Context, id uuid.UUID, pagesFetched, fragmentsHarvested, usefulFragments int, independentDomains int, hasPrimarySource bool) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE queries SET
				pages_fetched = pages_fetched + $2,
				fragments_harvested = fragments_harvested + $3,
				useful_fragment_count = useful_fragment_count + $4,
				independent_domain_count = $5,
				has_primary_source = $5 > 0 AND ($6 OR has_primary_source)
			WHERE id = $1`,
			id, pagesFetched, fragmentsHarvested, usefulFragments, independentDomains, hasPrimarySource)
		return err
	})
}

// RecordNoveltyCycle updates a query's consecutive stale-cycle counter:
// incremented when belowFloor is true, reset to zero otherwise. The caller
// decides what counts as stale (the orchestrator passes true when an
// extract job yielded no claim).
func (s *Store) RecordNoveltyCycle(ctx context.Context, id uuid.UUID, belowFloor bool) (staleCycles int, err error) {
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		expr := "0"
		if belowFloor {
			expr = "novelty_stale_cycles + 1"
		}
		return tx.QueryRow(ctx, `
			UPDATE queries SET novelty_stale_cycles = `+expr+`
			WHERE id = $1
			RETURNING novelty_stale_cycles`, id).Scan(&staleCycles)
	})
	return staleCycles, err
}

// GetQuery fetches a query by id.
func (s *Store) GetQuery(ctx context.Context, id uuid.UUID) (*Query, error) {
	var q Query
	err := s.pool.QueryRow(ctx, `
		SELECT id, task_id, text, provider, type, parent_query_id, depth, status,
			pages_fetched, fragments_harvested, useful_fragment_count,
			independent_domain_count, has_primary_source, novelty_stale_cycles, created_at
		FROM queries WHERE id = $1`, id).Scan(
		&q.ID, &q.TaskID, &q.Text, &q.Provider, &q.Type, &q.ParentQueryID, &q.Depth, &q.Status,
		&q.PagesFetched, &q.FragmentsHarvested, &q.UsefulFragmentCount,
		&q.IndependentDomainCount, &q.HasPrimarySource, &q.NoveltyStaleCycles, &q.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, verrors.Newf(verrors.InvalidInput, "query %s not found", id)
		}
		return nil, err
	}
	return &q, nil
}

// ListQueriesForTask lists every sub-search belonging to a task, oldest
// first.
func (s *Store) ListQueriesForTask(ctx context.Context, taskID uuid.UUID) ([]Query, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, text, provider, type, parent_query_id, depth, status,
			pages_fetched, fragments_harvested, useful_fragment_count,
			independent_domain_count, has_primary_source, novelty_stale_cycles, created_at
		FROM queries WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Query
	for rows.Next() {
		var q Query
		if err := rows.Scan(
			&q.ID, &q.TaskID, &q.Text, &q.Provider, &q.Type, &q.ParentQueryID, &q.Depth, &q.Status,
			&q.PagesFetched, &q.FragmentsHarvested, &q.UsefulFragmentCount,
			&q.IndependentDomainCount, &q.HasPrimarySource, &q.NoveltyStaleCycles, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
