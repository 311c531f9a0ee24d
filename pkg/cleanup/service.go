// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/store"
)

// Service periodically enforces retention policies:
//   - Deletes terminal tasks (and their cascaded evidence graph) past
//     their retention window
//   - Deletes settled jobs past their TTL, keeping the jobs table bounded
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config *config.RetentionConfig
	store  *store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, s *store.Store) *Service {
	return &Service{config: cfg, store: s}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"task_retention_days", s.config.TaskRetentionDays,
		"job_ttl", s.config.JobTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeOldTasks(ctx)
	s.purgeStaleJobs(ctx)
}

func (s *Service) purgeOldTasks(ctx context.Context) {
	count, err := s.store.PurgeOldTasks(ctx, s.config.TaskRetentionDays)
	if err != nil {
		slog.Error("Retention: purge old tasks failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged old tasks", "count", count)
	}
}

func (s *Service) purgeStaleJobs(ctx context.Context) {
	count, err := s.store.PurgeStaleJobs(ctx, s.config.JobTTL)
	if err != nil {
		slog.Error("Retention: purge stale jobs failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged stale jobs", "count", count)
	}
}
