package scheduler_test

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
	"github.com/openveritas/veritas/pkg/scheduler"
	"github.com/openveritas/veritas/pkg/store"
)

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

	// NewClient runs the embedded migrations before opening the pool.
	client, err := database.NewClient(ctx, database.Config{
		Host: host, Port: port.Int(), User: "test", Password: "test", Database: "test",
		SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
		ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return store.New(client.Pool())
}

func TestSlotGateBlocksExclusivePair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)

	gate := scheduler.NewSlotGate(s, 1, 16)

	_, err = s.EnqueueJob(ctx, taskID, store.JobExtract, store.SlotGPU, nil, []byte("{}"))
	require.NoError(t, err)
	job, err := s.ClaimNextJob(ctx, []store.JobKind{store.JobExtract}, "w1")
	require.NoError(t, err)
	require.NotNil(t, job)

	ok, err := gate.CanClaim(ctx, store.SlotBrowserHeadful, "")
	require.NoError(t, err)
	assert.False(t, ok, "browser_headful must be blocked while a gpu job is active")

	ok, err = gate.CanClaim(ctx, store.SlotCPUNLP, "")
	require.NoError(t, err)
	assert.True(t, ok, "unrelated slots are unaffected by exclusivity")
}

func TestSlotGateBlocksSecondGPUJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)

	gate := scheduler.NewSlotGate(s, 1, 16)

	_, err = s.EnqueueJob(ctx, taskID, store.JobExtract, store.SlotGPU, nil, []byte("{}"))
	require.NoError(t, err)
	job, err := s.ClaimNextJob(ctx, []store.JobKind{store.JobExtract}, "w1")
	require.NoError(t, err)
	require.NotNil(t, job)

	ok, err := gate.CanClaim(ctx, store.SlotGPU, "")
	require.NoError(t, err)
	assert.False(t, ok, "gpu has exactly one concurrent holder, a second gpu job must be blocked")
}

func TestSlotGateEnforcesNetworkClientTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)

	gate := scheduler.NewSlotGate(s, 10, 1)

	domain := "example.com"
	_, err = s.EnqueueJob(ctx, taskID, store.JobPrefetch, store.SlotNetworkClient, &domain, []byte("{}"))
	require.NoError(t, err)
	job, err := s.ClaimNextJob(ctx, []store.JobKind{store.JobPrefetch}, "w1")
	require.NoError(t, err)
	require.NotNil(t, job)

	other := "other.com"
	ok, err := gate.CanClaim(ctx, store.SlotNetworkClient, other)
	require.NoError(t, err)
	assert.False(t, ok, "overall network_client cap of 1 must block a second fetch even against a different domain")
}

func TestSlotGateEnforcesPerDomainLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "q", nil, nil)
	require.NoError(t, err)

	gate := scheduler.NewSlotGate(s, 1, 16)
	domain := "example.com"

	_, err = s.EnqueueJob(ctx, taskID, store.JobPrefetch, store.SlotNetworkClient, &domain, []byte("{}"))
	require.NoError(t, err)
	job, err := s.ClaimNextJob(ctx, []store.JobKind{store.JobPrefetch}, "w1")
	require.NoError(t, err)
	require.NotNil(t, job)

	ok, err := gate.CanClaim(ctx, store.SlotNetworkClient, domain)
	require.NoError(t, err)
	assert.False(t, ok, "a second concurrent fetch against the same domain must be blocked")

	ok, err = gate.CanClaim(ctx, store.SlotNetworkClient, "other.com")
	require.NoError(t, err)
	assert.True(t, ok, "a different domain has its own budget")
}
