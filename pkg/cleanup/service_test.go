package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/database"
	"github.com/openveritas/veritas/pkg/store"
)

// newTestStore starts a throwaway Postgres container and returns a Store
// over it, mirroring pkg/store's own test harness.
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

func TestService_PurgesOldTerminalTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "old satisfied task", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateTaskStatus(ctx, taskID, store.TaskSatisfied))

	_, err = s.Pool().Exec(ctx,
		`UPDATE tasks SET updated_at = now() - interval '400 days' WHERE id = $1`, taskID)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{TaskRetentionDays: 365, JobTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, s)
	svc.runAll(ctx)

	_, err = s.GetTask(ctx, taskID)
	assert.Error(t, err, "purged task should no longer be found")
}

func TestService_PreservesRecentTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "recent task", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateTaskStatus(ctx, taskID, store.TaskSatisfied))

	cfg := &config.RetentionConfig{TaskRetentionDays: 365, JobTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, s)
	svc.runAll(ctx)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskSatisfied, task.Status)
}

func TestService_PreservesRunningTasksRegardlessOfAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "still running", nil, nil)
	require.NoError(t, err)

	_, err = s.Pool().Exec(ctx,
		`UPDATE tasks SET updated_at = now() - interval '400 days' WHERE id = $1`, taskID)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{TaskRetentionDays: 365, JobTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, s)
	svc.runAll(ctx)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskRunning, task.Status)
}

func TestService_PurgesStaleCompletedJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taskID, err := s.InsertTask(ctx, "job retention task", nil, nil)
	require.NoError(t, err)

	jobID, err := s.EnqueueJob(ctx, taskID, store.JobSERP, store.SlotNetworkClient, nil, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, s.CompleteJob(ctx, jobID))

	_, err = s.Pool().Exec(ctx,
		`UPDATE jobs SET completed_at = now() - interval '2 hours' WHERE id = $1`, jobID)
	require.NoError(t, err)

	cfg := &config.RetentionConfig{TaskRetentionDays: 365, JobTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, s)
	svc.runAll(ctx)

	counts, err := s.JobQueueCounts(ctx, taskID)
	require.NoError(t, err)
	assert.Zero(t, counts["completed"], "stale completed job should have been purged")
}
