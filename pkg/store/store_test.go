package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openveritas/veritas/pkg/database"
	"github.com/openveritas/veritas/pkg/store"
)

// newTestStore starts a throwaway Postgres container, runs the embedded
// migrations, and returns a Store over it. Mirrors the harness shape in
// pkg/database's own tests.
func newTestStore(t *testing.T) *store.Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := database.Config{
		Host: host, Port: port.Int(), User: "test", Password: "test", Database: "test",
		SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
		ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 15 * time.Minute,
	}
	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return store.New(client.Pool())
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	budget := int64(10000)
	id, err := s.InsertTask(ctx, "is coffee healthy", &budget, nil)
	require.NoError(t, err)

	task, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.TaskRunning, task.Status)
	assert.Equal(t, "is coffee healthy", task.QueryText)

	require.NoError(t, s.RecordSpend(ctx, id, 500, 1))
	task, err = s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), task.SpentTokens)

	require.NoError(t, s.UpdateTaskStatus(ctx, id, store.TaskSatisfied))
	task, err = s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.TaskSatisfied, task.Status)
}

func TestUpsertPageIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)

	id1, isNew1, err := s.UpsertPage(ctx, taskID, "https://x.com/a?utm=1", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)
	assert.True(t, isNew1)

	id2, isNew2, err := s.UpsertPage(ctx, taskID, "https://x.com/a?utm=2", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Equal(t, id1, id2)
}

func TestInsertFragmentsDeduplicatesByTextHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)
	pageID, _, err := s.UpsertPage(ctx, taskID, "https://x.com/a", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)

	ids, err := s.InsertFragments(ctx, pageID, []store.FragmentInput{
		{Text: "first paragraph", PositionIndex: 0},
		{Text: "first paragraph", PositionIndex: 1}, // duplicate within batch
	})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	ids2, err := s.InsertFragments(ctx, pageID, []store.FragmentInput{
		{Text: "first paragraph", PositionIndex: 2}, // duplicate against stored
		{Text: "second paragraph", PositionIndex: 3},
	})
	require.NoError(t, err)
	assert.Len(t, ids2, 1)
}

func TestClaimRequiresOriginEdge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)
	pageID, _, err := s.UpsertPage(ctx, taskID, "https://x.com/a", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)
	fragIDs, err := s.InsertFragments(ctx, pageID, []store.FragmentInput{{Text: "coffee reduces risk", PositionIndex: 0}})
	require.NoError(t, err)

	_, err = s.InsertClaimWithOrigin(ctx, taskID, store.ExtractedClaim{Text: ""}, nil)
	assert.Error(t, err)

	claimID, err := s.InsertClaimWithOrigin(ctx, taskID, store.ExtractedClaim{Text: "coffee reduces risk of disease"}, fragIDs)
	require.NoError(t, err)

	origins, err := s.ClaimOrigins(ctx, claimID)
	require.NoError(t, err)
	assert.Len(t, origins, 1)
}

func TestClaimWithOriginKeepsOneEdgePerFragment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)
	pageID, _, err := s.UpsertPage(ctx, taskID, "https://x.com/a", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)
	fragIDs, err := s.InsertFragments(ctx, pageID, []store.FragmentInput{
		{Text: "first supporting passage", PositionIndex: 0},
		{Text: "second supporting passage", PositionIndex: 1},
	})
	require.NoError(t, err)
	require.Len(t, fragIDs, 2)

	claimID, err := s.InsertClaimWithOrigin(ctx, taskID, store.ExtractedClaim{Text: "claim cited from two fragments"}, fragIDs)
	require.NoError(t, err)

	origins, err := s.ClaimOrigins(ctx, claimID)
	require.NoError(t, err)
	assert.Len(t, origins, 2)

	// Re-running InsertClaimWithOrigin's per-fragment insert is idempotent
	// per (fragment, claim): re-inserting the same origin pair must not
	// duplicate the edge.
	_, _, err = s.InsertEdge(ctx, fragIDs[0], claimID, store.RelationOrigin, nil, nil)
	require.NoError(t, err)
	origins, err = s.ClaimOrigins(ctx, claimID)
	require.NoError(t, err)
	assert.Len(t, origins, 2)
}

func TestInsertEdgeEnforcesNLIUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)
	pageID, _, err := s.UpsertPage(ctx, taskID, "https://x.com/a", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)
	fragIDs, err := s.InsertFragments(ctx, pageID, []store.FragmentInput{{Text: "evidence fragment", PositionIndex: 0}})
	require.NoError(t, err)
	claimID, err := s.InsertClaimWithOrigin(ctx, taskID, store.ExtractedClaim{Text: "claim text"}, fragIDs)
	require.NoError(t, err)

	conf1 := 0.9
	id1, isNew1, err := s.InsertEdge(ctx, fragIDs[0], claimID, store.RelationSupports, &conf1, nil)
	require.NoError(t, err)
	assert.True(t, isNew1)

	conf2 := 0.2
	id2, isNew2, err := s.InsertEdge(ctx, fragIDs[0], claimID, store.RelationSupports, &conf2, nil)
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Equal(t, id1, id2)
}

func TestClaimResourceIsRaceSafe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)

	c1, err := s.ClaimResource(ctx, taskID, "doi", "10.1000/xyz", "worker-a")
	require.NoError(t, err)
	assert.True(t, c1.Claimed)

	c2, err := s.ClaimResource(ctx, taskID, "doi", "10.1000/xyz", "worker-b")
	require.NoError(t, err)
	assert.False(t, c2.Claimed)
	assert.Equal(t, "worker-a", c2.ClaimedBy)
}

func TestClaimEvidenceSummaryComputesBayesianConfidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)
	pageID, _, err := s.UpsertPage(ctx, taskID, "https://x.com/a", "https://x.com/a", "x.com", "A")
	require.NoError(t, err)
	fragIDs, err := s.InsertFragments(ctx, pageID, []store.FragmentInput{
		{Text: "frag one", PositionIndex: 0},
		{Text: "frag two", PositionIndex: 1},
	})
	require.NoError(t, err)
	claimID, err := s.InsertClaimWithOrigin(ctx, taskID, store.ExtractedClaim{Text: "claim text"}, fragIDs[:1])
	require.NoError(t, err)

	conf := 0.8
	_, _, err = s.InsertEdge(ctx, fragIDs[0], claimID, store.RelationSupports, &conf, nil)
	require.NoError(t, err)
	_, _, err = s.InsertEdge(ctx, fragIDs[1], claimID, store.RelationSupports, &conf, nil)
	require.NoError(t, err)

	summary, err := s.ClaimEvidenceSummary(ctx, claimID)
	require.NoError(t, err)
	// (1 + 1.6) / (2 + 1.6 + 0) = 2.6 / 3.6
	assert.InDelta(t, 2.6/3.6, summary.TruthConfidence, 0.0001)
}
