// Package scheduler is the single-process, multi-worker job scheduler:
// priority-ordered claiming over the durable job table, slot exclusivity
// and per-domain budgeting, circuit breakers per job kind, and heartbeat-
// based orphan recovery. Directly generalizes the teacher's pkg/queue
// WorkerPool/Worker from the "alert session" domain to the spec's Job
// entity.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/store"
)

// ErrJobSuspended signals that a JobHandler already transitioned the job to
// its own terminal-pending state (e.g. awaiting_auth) and claimed/completed/
// failed bookkeeping should not additionally run for it.
var ErrJobSuspended = errors.New("scheduler: job suspended by handler")

// PriorityOrder is the fixed job-kind claim order: smaller index claims
// first.
var PriorityOrder = []store.JobKind{
	store.JobSERP,
	store.JobPrefetch,
	store.JobExtract,
	store.JobEmbed,
	store.JobRerank,
	store.JobLLMFast,
	store.JobLLMSlow,
}

// JobHandler executes the work described by a claimed job's payload. The
// handler owns interpreting payload/kind; the pool only owns claiming,
// heartbeating, and terminal-status bookkeeping.
type JobHandler interface {
	Handle(ctx context.Context, job *store.Job) error
}

// PoolHealth mirrors the teacher's PoolHealth shape, generalized from
// session counts to job counts.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth mirrors the teacher's WorkerHealth shape.
type WorkerHealth struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	CurrentJobID   string    `json:"current_job_id,omitempty"`
	JobsProcessed  int       `json:"jobs_processed"`
	LastActivity   time.Time `json:"last_activity"`
}

// Pool manages a pool of scheduler workers over the durable job table.
type Pool struct {
	podID   string
	store   *store.Store
	cfg     *config.SchedulerConfig
	handler JobHandler
	gate    *SlotGate
	cancels *TaskCancelRegistry

	breakerMu sync.Mutex
	breakers  map[store.JobKind]*Breaker

	workers  []*worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	orphanMu         sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// NewPool builds a worker pool over s, claiming jobs with podID-prefixed
// worker ids and dispatching each claimed job to handler. cancels is shared
// with whatever drives stop_task (the orchestrator), so a task-level cancel
// reaches jobs this pool has in flight.
func NewPool(podID string, s *store.Store, cfg *config.SchedulerConfig, handler JobHandler, cancels *TaskCancelRegistry) *Pool {
	breakers := make(map[store.JobKind]*Breaker, len(PriorityOrder))
	for _, kind := range PriorityOrder {
		bc := BreakerConfig{}
		if cfg.CircuitBreaker != nil {
			bc = BreakerConfig{
				FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
				OpenDuration:     cfg.CircuitBreaker.OpenDuration,
				HalfOpenProbes:   cfg.CircuitBreaker.HalfOpenProbes,
			}
		}
		breakers[kind] = NewBreaker(bc)
	}

	if cancels == nil {
		cancels = NewTaskCancelRegistry()
	}

	return &Pool{
		podID:    podID,
		store:    s,
		cfg:      cfg,
		handler:  handler,
		gate:     NewSlotGate(s, cfg.PerDomainLimit, cfg.NetworkClientSlots),
		cancels:  cancels,
		breakers: breakers,
		workers:  make([]*worker, 0, cfg.WorkerCount),
		stopCh:   make(chan struct{}),
	}
}

// Start spawns worker goroutines and the orphan detection background task.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("scheduler: pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return
	}
	p.started = true

	slog.Info("scheduler: starting worker pool", "pod_id", p.podID, "worker_count", p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("%s-worker-%d", p.podID, i), p)
		p.workers = append(p.workers, w)
		w.start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()
}

// Stop signals all workers to stop and waits for graceful shutdown, bounded
// by GracefulShutdownTimeout. Workers still running a job past the deadline
// are abandoned; their jobs fall back to heartbeat-based orphan recovery.
func (p *Pool) Stop() {
	slog.Info("scheduler: stopping worker pool gracefully")
	for _, w := range p.workers {
		w.signalStop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })

	timeout := p.cfg.GracefulShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("scheduler: worker pool stopped")
	case <-time.After(timeout):
		slog.Warn("scheduler: graceful shutdown timed out, abandoning in-flight workers", "timeout", timeout)
	}
}

func (p *Pool) breakerFor(kind store.JobKind) *Breaker {
	p.breakerMu.Lock()
	defer p.breakerMu.Unlock()
	return p.breakers[kind]
}

func (p *Pool) runOrphanDetection(ctx context.Context) {
	interval := p.cfg.OrphanDetectionInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			staleSeconds := int(p.cfg.OrphanThreshold.Seconds())
			if staleSeconds <= 0 {
				staleSeconds = 120
			}
			n, err := p.store.ReclaimOrphans(ctx, staleSeconds)
			if err != nil {
				slog.Error("scheduler: orphan detection failed", "error", err)
				continue
			}
			p.orphanMu.Lock()
			p.lastOrphanScan = time.Now()
			p.orphansRecovered += n
			p.orphanMu.Unlock()
			if n > 0 {
				slog.Warn("scheduler: reclaimed orphaned jobs", "count", n)
			}
		}
	}
}

// Health returns the current health status of the pool.
func (p *Pool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		stats[i] = w.health()
		if stats[i].Status == "working" {
			active++
		}
	}

	p.orphanMu.Lock()
	lastScan := p.lastOrphanScan
	recovered := p.orphansRecovered
	p.orphanMu.Unlock()

	return PoolHealth{
		IsHealthy:        len(p.workers) > 0,
		PodID:            p.podID,
		ActiveWorkers:    active,
		TotalWorkers:     len(p.workers),
		WorkerStats:      stats,
		LastOrphanScan:   lastScan,
		OrphansRecovered: recovered,
	}
}
