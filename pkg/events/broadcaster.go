package events

import "sync"

// Broadcaster wakes get_status long-poll waiters on significant per-task
// transitions (a query becoming satisfied, a job entering the auth queue,
// task completion) instead of having callers busy-loop on the store.
// Single-process equivalent of the teacher's WebSocket/NOTIFY transport:
// the cross-pod fan-out that package solves for does not apply here, since
// this system is explicitly single-process.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

// NewBroadcaster builds an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string][]chan struct{})}
}

// Wait returns a channel that closes the next time Notify(key) is called.
// Callers select on it alongside a timeout.
func (b *Broadcaster) Wait(key string) <-chan struct{} {
	ch := make(chan struct{})
	b.mu.Lock()
	b.subs[key] = append(b.subs[key], ch)
	b.mu.Unlock()
	return ch
}

// Notify wakes every waiter currently registered for key.
func (b *Broadcaster) Notify(key string) {
	b.mu.Lock()
	waiters := b.subs[key]
	delete(b.subs, key)
	b.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}
