package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskCancelRegistry lets a task-level control operation (stop_task) reach
// running jobs: every job context derived via WithTask observes CancelTask
// for its task at its next ctx.Done() checkpoint, without the scheduler
// needing to know anything about tasks beyond their id.
type TaskCancelRegistry struct {
	mu      sync.Mutex
	cancels map[uuid.UUID]map[int]context.CancelFunc
	next    int
}

// NewTaskCancelRegistry builds an empty registry.
func NewTaskCancelRegistry() *TaskCancelRegistry {
	return &TaskCancelRegistry{cancels: make(map[uuid.UUID]map[int]context.CancelFunc)}
}

// WithTask derives a context from parent that is cancelled when parent is
// done or when CancelTask(taskID) is called, whichever comes first. The
// caller must invoke the returned release func once the context is no
// longer needed, so a long-lived task doesn't accumulate stale entries from
// jobs that finished normally.
func (r *TaskCancelRegistry) WithTask(parent context.Context, taskID uuid.UUID) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	id := r.next
	r.next++
	if r.cancels[taskID] == nil {
		r.cancels[taskID] = make(map[int]context.CancelFunc)
	}
	r.cancels[taskID][id] = cancel
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		if set, ok := r.cancels[taskID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.cancels, taskID)
			}
		}
		r.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// CancelTask cancels every context currently registered for taskID and
// reports how many jobs were signalled.
func (r *TaskCancelRegistry) CancelTask(taskID uuid.UUID) int {
	r.mu.Lock()
	set := r.cancels[taskID]
	delete(r.cancels, taskID)
	r.mu.Unlock()

	for _, cancel := range set {
		cancel()
	}
	return len(set)
}
