package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verrors"
)

// errNoJobAvailable signals the poll loop to back off without logging an
// error, mirroring the teacher's ErrNoSessionsAvailable.
var errNoJobAvailable = errors.New("scheduler: no job available")

type worker struct {
	id   string
	pool *Pool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        string
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

func newWorker(id string, pool *Pool) *worker {
	return &worker{id: id, pool: pool, stopCh: make(chan struct{}), status: "idle", lastActivity: time.Now()}
}

func (w *worker) start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// signalStop asks the worker to exit its poll loop without blocking.
func (w *worker) signalStop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *worker) stop() {
	w.signalStop()
	w.wg.Wait()
}

func (w *worker) setStatus(status, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

func (w *worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID: w.id, Status: w.status, CurrentJobID: w.currentJobID,
		JobsProcessed: w.jobsProcessed, LastActivity: w.lastActivity,
	}
}

func (w *worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("scheduler: worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("scheduler: worker shutting down")
			return
		case <-ctx.Done():
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, errNoJobAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("scheduler: error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *worker) pollInterval() time.Duration {
	base := w.pool.cfg.PollInterval
	jitter := w.pool.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// pollAndProcess claims the next eligible job respecting priority order,
// slot exclusivity, and circuit breaker state, then dispatches it.
func (w *worker) pollAndProcess(ctx context.Context) error {
	job, err := w.pool.store.ClaimNextJob(ctx, PriorityOrder, w.id)
	if err != nil {
		return err
	}
	if job == nil {
		return errNoJobAvailable
	}

	breaker := w.pool.breakerFor(job.Kind)
	if !breaker.Allow() {
		// Breaker open for this kind: requeue immediately, try something else.
		_ = w.pool.store.FailJob(ctx, job.ID, "circuit breaker open", true)
		return errNoJobAvailable
	}

	domain := ""
	if job.Domain != nil {
		domain = *job.Domain
	}
	if ok, err := w.pool.gate.CanClaim(ctx, job.Slot, domain); err != nil {
		return err
	} else if !ok {
		_ = w.pool.store.FailJob(ctx, job.ID, "slot unavailable", true)
		return errNoJobAvailable
	}

	w.setStatus("working", job.ID.String())
	defer w.setStatus("idle", "")

	taskCtx, releaseTask := w.pool.cancels.WithTask(ctx, job.TaskID)
	defer releaseTask()

	jobCtx, cancel := context.WithTimeout(taskCtx, w.pool.cfg.JobTimeout)
	defer cancel()

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	go w.runHeartbeat(heartbeatCtx, job.ID)

	if err := w.pool.store.MarkJobRunning(context.Background(), job.ID); err != nil {
		cancelHeartbeat()
		return err
	}

	runErr := w.pool.handler.Handle(jobCtx, job)
	cancelHeartbeat()

	switch {
	case runErr == nil:
		breaker.RecordSuccess()
		if err := w.pool.store.CompleteJob(context.Background(), job.ID); err != nil {
			return err
		}
	case errors.Is(runErr, ErrJobSuspended):
		// The handler already transitioned the job to its own terminal-
		// pending state (e.g. awaiting_auth) — leave it alone.
	case errors.Is(jobCtx.Err(), context.Canceled):
		_ = w.pool.store.CancelJob(context.Background(), job.ID)
	default:
		breaker.RecordFailure()
		retryable := verrors.Retryable(runErr)
		_ = w.pool.store.FailJob(context.Background(), job.ID, runErr.Error(), retryable)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()
	return nil
}

func (w *worker) runHeartbeat(ctx context.Context, jobID uuid.UUID) {
	interval := w.pool.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.pool.store.Heartbeat(context.Background(), jobID); err != nil {
				slog.Error("scheduler: heartbeat failed", "worker_id", w.id, "job_id", jobID, "error", err)
			}
		}
	}
}
