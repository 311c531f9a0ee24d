// Package orchestrator drives a research task's lifecycle end to end:
// translating create_task/queue_searches/stop_task/get_status/get_materials
// into scheduled jobs, dispatching those jobs as they're claimed, and
// tracking per-query harvest rate, novelty, and satisfaction so the system
// knows when a task is done. Generalizes the teacher's pkg/agent/orchestrator
// session-driving loop from one LLM conversation to one research task.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/config"
	"github.com/openveritas/veritas/pkg/events"
	"github.com/openveritas/veritas/pkg/extraction"
	"github.com/openveritas/veritas/pkg/rpc"
	"github.com/openveritas/veritas/pkg/scheduler"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verification"
	"github.com/openveritas/veritas/pkg/verrors"
)

// SearchHit is one external search result, prior to becoming a page.
type SearchHit struct {
	URL     string
	Title   string
	Snippet string
}

// QueryProvider searches the configured provider registry for a query's
// text. Defined here (not imported from the provider package) so the
// provider registry satisfies it structurally without orchestrator needing
// to import it.
type QueryProvider interface {
	Search(ctx context.Context, query string) (providerName string, hits []SearchHit, err error)
}

// Orchestrator composes the scheduler, store, extraction, and verification
// engines into the task-driving loop of the research workflow.
type Orchestrator struct {
	store      *store.Store
	providers  QueryProvider
	fetch      *rpc.FetchClient
	extraction *extraction.Engine
	verifier   *verification.Verifier
	defaults   *config.Defaults
	broadcast  *events.Broadcaster
	cancels    *scheduler.TaskCancelRegistry
}

// New builds an Orchestrator. cancels is shared with the scheduler.Pool this
// orchestrator's jobs run under, so StopTask can reach jobs already claimed
// or running, not just ones still queued.
func New(s *store.Store, providers QueryProvider, fetch *rpc.FetchClient, extractor *extraction.Engine, verifier *verification.Verifier, defaults *config.Defaults, broadcast *events.Broadcaster, cancels *scheduler.TaskCancelRegistry) *Orchestrator {
	if cancels == nil {
		cancels = scheduler.NewTaskCancelRegistry()
	}
	return &Orchestrator{
		store: s, providers: providers, fetch: fetch,
		extraction: extractor, verifier: verifier, defaults: defaults, broadcast: broadcast,
		cancels: cancels,
	}
}

// CreateTask starts a new research task from a hypothesis, seeding its
// initial query and enqueueing the serp job that drives it.
func (o *Orchestrator) CreateTask(ctx context.Context, hypothesis string, budgetTokens, budgetRequests *int64) (uuid.UUID, error) {
	taskID, err := o.store.InsertTask(ctx, hypothesis, budgetTokens, budgetRequests)
	if err != nil {
		return uuid.Nil, verrors.Wrap(verrors.Fatal, "orchestrator: create task", err)
	}
	if _, err := o.enqueueQuery(ctx, taskID, hypothesis, store.QueryInitial, nil, 0); err != nil {
		return uuid.Nil, err
	}
	return taskID, nil
}

// QueuedSearch is one caller-requested sub-search.
type QueuedSearch struct {
	Text          string
	Type          store.QueryType
	ParentQueryID *uuid.UUID
}

// QueueSearches spawns sub-searches under an existing task. Type defaults
// to expansion when unset — the common case of a caller widening coverage
// rather than explicitly mirroring or reverse-searching.
func (o *Orchestrator) QueueSearches(ctx context.Context, taskID uuid.UUID, searches []QueuedSearch) ([]uuid.UUID, error) {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != store.TaskRunning {
		return nil, verrors.Newf(verrors.InvalidInput, "task %s is %s, not running", taskID, task.Status)
	}

	ids := make([]uuid.UUID, 0, len(searches))
	for _, s := range searches {
		qType := s.Type
		if qType == "" {
			qType = store.QueryExpansion
		}
		depth := 0
		if s.ParentQueryID != nil {
			parent, err := o.store.GetQuery(ctx, *s.ParentQueryID)
			if err != nil {
				return ids, err
			}
			depth = parent.Depth + 1
		}
		id, err := o.enqueueQuery(ctx, taskID, s.Text, qType, s.ParentQueryID, depth)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (o *Orchestrator) enqueueQuery(ctx context.Context, taskID uuid.UUID, text string, qType store.QueryType, parentQueryID *uuid.UUID, depth int) (uuid.UUID, error) {
	queryID, err := o.store.InsertQuery(ctx, taskID, text, qType, parentQueryID, depth)
	if err != nil {
		return uuid.Nil, verrors.Wrap(verrors.Fatal, "orchestrator: insert query", err)
	}
	payload, err := marshalSERPPayload(serpPayload{QueryID: queryID})
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := o.store.EnqueueJob(ctx, taskID, store.JobSERP, store.SlotNetworkClient, nil, payload); err != nil {
		return uuid.Nil, verrors.Wrap(verrors.Fatal, "orchestrator: enqueue serp job", err)
	}
	return queryID, nil
}

// StopSummary reports the outcome of a stop_task call.
type StopSummary struct {
	FinalStatus   store.TaskStatus
	CancelledJobs int
}

// StopTask cancels a task's not-yet-started jobs and signals its in-flight
// jobs to cancel at their next safe point (the per-task context handed to
// JobHandler.Handle via the shared TaskCancelRegistry), then marks the task
// cancelled. reason is logged for operator audit; it is not persisted —
// tasks have no reason column.
func (o *Orchestrator) StopTask(ctx context.Context, taskID uuid.UUID, reason string) (StopSummary, error) {
	queuedCancelled, err := o.store.CancelQueuedJobsForTask(ctx, taskID)
	if err != nil {
		return StopSummary{}, verrors.Wrap(verrors.Fatal, "orchestrator: cancel queued jobs", err)
	}
	runningSignalled := o.cancels.CancelTask(taskID)

	if err := o.store.UpdateTaskStatus(ctx, taskID, store.TaskCancelled); err != nil {
		return StopSummary{}, err
	}
	o.broadcast.Notify(taskID.String())

	if reason != "" {
		slog.Info("orchestrator: task stopped", "task_id", taskID, "reason", reason,
			"queued_cancelled", queuedCancelled, "running_signalled", runningSignalled)
	}

	return StopSummary{
		FinalStatus:   store.TaskCancelled,
		CancelledJobs: queuedCancelled + runningSignalled,
	}, nil
}

// ResolveAuth re-queues a job suspended on an auth wall.
func (o *Orchestrator) ResolveAuth(ctx context.Context, queueID uuid.UUID) error {
	if err := o.store.ResolveAuth(ctx, queueID); err != nil {
		return err
	}
	return nil
}
