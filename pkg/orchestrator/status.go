package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openveritas/veritas/pkg/store"
)

// QueryStatus is one query's progress snapshot within a task's status
// response.
type QueryStatus struct {
	ID                     uuid.UUID         `json:"id"`
	Text                   string            `json:"text"`
	Type                   store.QueryType   `json:"type"`
	Status                 store.QueryStatus `json:"status"`
	PagesFetched           int               `json:"pages_fetched"`
	FragmentsHarvested     int               `json:"fragments_harvested"`
	IndependentDomainCount int               `json:"independent_domain_count"`
	HasPrimarySource       bool              `json:"has_primary_source"`
	Satisfaction           float64           `json:"satisfaction"`
}

// Budget reports spend against a task's configured budgets.
type Budget struct {
	TokensSpent   int64  `json:"tokens_spent"`
	TokensBudget  *int64 `json:"tokens_budget,omitempty"`
	RequestsSpent int64  `json:"requests_spent"`
	RequestsLimit *int64 `json:"requests_limit,omitempty"`
}

// TaskStatus is the full snapshot returned by get_status.
type TaskStatus struct {
	TaskID     uuid.UUID         `json:"task_id"`
	TaskStatus store.TaskStatus  `json:"task_status"`
	Queries    []QueryStatus     `json:"queries"`
	Budget     Budget            `json:"budget"`
	Queue      map[string]int    `json:"queue"`
	AuthQueue  []store.AuthQueueEntry `json:"auth_queue"`
	Warnings   []string          `json:"warnings"`
}

// GetStatus builds a task's current status snapshot. If wait is positive and
// the task has not reached a terminal or attention-needing change, GetStatus
// blocks until the broadcaster wakes it for that task or wait elapses,
// whichever comes first — callers use this for long-polling get_status
// instead of busy-polling the store.
func (o *Orchestrator) GetStatus(ctx context.Context, taskID uuid.UUID, wait time.Duration) (*TaskStatus, error) {
	status, err := o.snapshot(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if wait <= 0 || isTerminal(status.TaskStatus) {
		return status, nil
	}

	woken := o.broadcast.Wait(taskID.String())
	select {
	case <-woken:
		return o.snapshot(ctx, taskID)
	case <-time.After(wait):
		return status, nil
	case <-ctx.Done():
		return status, ctx.Err()
	}
}

func (o *Orchestrator) snapshot(ctx context.Context, taskID uuid.UUID) (*TaskStatus, error) {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	queries, err := o.store.ListQueriesForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	queryStatuses := make([]QueryStatus, len(queries))
	for i, q := range queries {
		queryStatuses[i] = QueryStatus{
			ID: q.ID, Text: q.Text, Type: q.Type, Status: q.Status,
			PagesFetched: q.PagesFetched, FragmentsHarvested: q.FragmentsHarvested,
			IndependentDomainCount: q.IndependentDomainCount, HasPrimarySource: q.HasPrimarySource,
			Satisfaction: ComputeSatisfaction(q.IndependentDomainCount, q.HasPrimarySource),
		}
	}

	queue, err := o.store.JobQueueCounts(ctx, taskID)
	if err != nil {
		return nil, err
	}

	authQueue, err := o.store.ListPendingAuth(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if task.BudgetRequests != nil {
		softLimit := int64(float64(*task.BudgetRequests) * 0.8)
		if task.SpentRequests >= softLimit {
			warnings = append(warnings, "request budget above 80%")
		}
	}
	if task.BudgetTokens != nil {
		softLimit := int64(float64(*task.BudgetTokens) * 0.8)
		if task.SpentTokens >= softLimit {
			warnings = append(warnings, "token budget above 80%")
		}
	}
	if len(authQueue) > 0 {
		warnings = append(warnings, "one or more fetches are waiting on authentication")
	}
	if task.Status == store.TaskPaused {
		warnings = append(warnings, "budget exhausted")
	}

	return &TaskStatus{
		TaskID: taskID, TaskStatus: task.Status, Queries: queryStatuses,
		Budget: Budget{
			TokensSpent: task.SpentTokens, TokensBudget: task.BudgetTokens,
			RequestsSpent: task.SpentRequests, RequestsLimit: task.BudgetRequests,
		},
		Queue: queue, AuthQueue: authQueue, Warnings: warnings,
	}, nil
}

func isTerminal(status store.TaskStatus) bool {
	switch status {
	case store.TaskSatisfied, store.TaskExhausted, store.TaskCancelled, store.TaskFailed, store.TaskPaused:
		return true
	default:
		return false
	}
}
