// Package mcpserver exposes the research orchestrator over MCP: one tool
// per operation in create_task/queue_searches/stop_task/get_status/
// get_materials/resolve_auth, plus the supplementary evidence-graph views
// (get_contradictions/get_hub_pages/get_orphan_sources). Mirrors the
// teacher's pkg/mcp client idiom from the server side of the same SDK.
package mcpserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/openveritas/veritas/pkg/orchestrator"
	"github.com/openveritas/veritas/pkg/store"
	"github.com/openveritas/veritas/pkg/verrors"
)

// New builds an MCP server with every research-orchestrator tool
// registered. Callers run it over whatever transport they choose
// (stdio in cmd/veritas).
func New(orch *orchestrator.Orchestrator, name, version string) *mcpsdk.Server {
	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: name, Version: version}, nil)

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "create_task",
		Description: "Start a new research task from a hypothesis, seeding its initial query.",
	}, createTaskHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "queue_searches",
		Description: "Spawn additional sub-searches under a running task.",
	}, queueSearchesHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "stop_task",
		Description: "Cancel a task's queued and in-flight work and mark it cancelled.",
	}, stopTaskHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Fetch a task's current status, optionally long-polling for the next change.",
	}, getStatusHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "get_materials",
		Description: "Fetch every surviving claim for a task with its truth confidence and evidence chain.",
	}, getMaterialsHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "resolve_auth",
		Description: "Re-queue a fetch job that was suspended on an authentication wall.",
	}, resolveAuthHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "get_contradictions",
		Description: "List claims in a task with both supporting and refuting evidence.",
	}, getContradictionsHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "get_hub_pages",
		Description: "List a task's sources ranked by how many distinct claims they touched.",
	}, getHubPagesHandler(orch))

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "get_orphan_sources",
		Description: "List fetched pages that contributed no evidence, to spot wasted fetch budget.",
	}, getOrphanSourcesHandler(orch))

	return s
}

type createTaskArgs struct {
	Hypothesis     string `json:"hypothesis"`
	BudgetTokens   *int64 `json:"budget_tokens,omitempty"`
	BudgetRequests *int64 `json:"budget_requests,omitempty"`
}

type createTaskResult struct {
	TaskID string `json:"task_id"`
}

func createTaskHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[createTaskArgs, createTaskResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args createTaskArgs) (*mcpsdk.CallToolResult, createTaskResult, error) {
		if args.Hypothesis == "" {
			return nil, createTaskResult{}, verrors.New(verrors.InvalidInput, "mcpserver: hypothesis is required")
		}
		taskID, err := orch.CreateTask(ctx, args.Hypothesis, args.BudgetTokens, args.BudgetRequests)
		if err != nil {
			return nil, createTaskResult{}, err
		}
		return nil, createTaskResult{TaskID: taskID.String()}, nil
	}
}

type queuedSearchArg struct {
	Text          string  `json:"text"`
	Type          string  `json:"type,omitempty"`
	ParentQueryID *string `json:"parent_query_id,omitempty"`
}

type queueSearchesArgs struct {
	TaskID   string            `json:"task_id"`
	Searches []queuedSearchArg `json:"searches"`
}

type queueSearchesResult struct {
	QueryIDs []string `json:"query_ids"`
}

func queueSearchesHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[queueSearchesArgs, queueSearchesResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args queueSearchesArgs) (*mcpsdk.CallToolResult, queueSearchesResult, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, queueSearchesResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}

		searches := make([]orchestrator.QueuedSearch, 0, len(args.Searches))
		for _, s := range args.Searches {
			qs := orchestrator.QueuedSearch{Text: s.Text, Type: store.QueryType(s.Type)}
			if s.ParentQueryID != nil {
				parentID, err := uuid.Parse(*s.ParentQueryID)
				if err != nil {
					return nil, queueSearchesResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid parent_query_id", err)
				}
				qs.ParentQueryID = &parentID
			}
			searches = append(searches, qs)
		}

		ids, err := orch.QueueSearches(ctx, taskID, searches)
		if err != nil {
			return nil, queueSearchesResult{}, err
		}
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.String()
		}
		return nil, queueSearchesResult{QueryIDs: out}, nil
	}
}

type taskIDArgs struct {
	TaskID string `json:"task_id"`
}

type stopTaskArgs struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

type stopTaskSummary struct {
	CancelledJobs int `json:"cancelled_jobs"`
}

type stopTaskResult struct {
	FinalStatus string          `json:"final_status"`
	Summary     stopTaskSummary `json:"summary"`
}

func stopTaskHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[stopTaskArgs, stopTaskResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args stopTaskArgs) (*mcpsdk.CallToolResult, stopTaskResult, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, stopTaskResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}
		summary, err := orch.StopTask(ctx, taskID, args.Reason)
		if err != nil {
			return nil, stopTaskResult{}, err
		}
		return nil, stopTaskResult{
			FinalStatus: string(summary.FinalStatus),
			Summary:     stopTaskSummary{CancelledJobs: summary.CancelledJobs},
		}, nil
	}
}

type getStatusArgs struct {
	TaskID     string `json:"task_id"`
	WaitSeconds int   `json:"wait_seconds,omitempty"`
}

func getStatusHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[getStatusArgs, orchestrator.TaskStatus] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args getStatusArgs) (*mcpsdk.CallToolResult, orchestrator.TaskStatus, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, orchestrator.TaskStatus{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}
		status, err := orch.GetStatus(ctx, taskID, time.Duration(args.WaitSeconds)*time.Second)
		if err != nil {
			return nil, orchestrator.TaskStatus{}, err
		}
		return nil, *status, nil
	}
}

type getMaterialsResult struct {
	Materials []orchestrator.Material `json:"materials"`
}

func getMaterialsHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[taskIDArgs, getMaterialsResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args taskIDArgs) (*mcpsdk.CallToolResult, getMaterialsResult, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, getMaterialsResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}
		materials, err := orch.GetMaterials(ctx, taskID)
		if err != nil {
			return nil, getMaterialsResult{}, err
		}
		return nil, getMaterialsResult{Materials: materials}, nil
	}
}

type resolveAuthArgs struct {
	QueueID string `json:"queue_id"`
}

type resolveAuthResult struct {
	Resolved bool `json:"resolved"`
}

func resolveAuthHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[resolveAuthArgs, resolveAuthResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args resolveAuthArgs) (*mcpsdk.CallToolResult, resolveAuthResult, error) {
		queueID, err := uuid.Parse(args.QueueID)
		if err != nil {
			return nil, resolveAuthResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid queue_id", err)
		}
		if err := orch.ResolveAuth(ctx, queueID); err != nil {
			return nil, resolveAuthResult{}, err
		}
		return nil, resolveAuthResult{Resolved: true}, nil
	}
}

type getContradictionsResult struct {
	Contradictions []store.ClaimEvidenceSummary `json:"contradictions"`
}

func getContradictionsHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[taskIDArgs, getContradictionsResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args taskIDArgs) (*mcpsdk.CallToolResult, getContradictionsResult, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, getContradictionsResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}
		out, err := orch.GetContradictions(ctx, taskID)
		if err != nil {
			return nil, getContradictionsResult{}, err
		}
		return nil, getContradictionsResult{Contradictions: out}, nil
	}
}

type getHubPagesArgs struct {
	TaskID string `json:"task_id"`
	Limit  int    `json:"limit,omitempty"`
}

type getHubPagesResult struct {
	Pages []store.HubPage `json:"pages"`
}

func getHubPagesHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[getHubPagesArgs, getHubPagesResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args getHubPagesArgs) (*mcpsdk.CallToolResult, getHubPagesResult, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, getHubPagesResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}
		limit := args.Limit
		if limit <= 0 {
			limit = 20
		}
		out, err := orch.GetHubPages(ctx, taskID, limit)
		if err != nil {
			return nil, getHubPagesResult{}, err
		}
		return nil, getHubPagesResult{Pages: out}, nil
	}
}

type getOrphanSourcesResult struct {
	Sources []store.OrphanSource `json:"sources"`
}

func getOrphanSourcesHandler(orch *orchestrator.Orchestrator) mcpsdk.ToolHandlerFor[taskIDArgs, getOrphanSourcesResult] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args taskIDArgs) (*mcpsdk.CallToolResult, getOrphanSourcesResult, error) {
		taskID, err := uuid.Parse(args.TaskID)
		if err != nil {
			return nil, getOrphanSourcesResult{}, verrors.Wrap(verrors.InvalidInput, "mcpserver: invalid task_id", err)
		}
		out, err := orch.GetOrphanSources(ctx, taskID)
		if err != nil {
			return nil, getOrphanSourcesResult{}, err
		}
		return nil, getOrphanSourcesResult{Sources: out}, nil
	}
}
