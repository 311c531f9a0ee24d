package scheduler

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerHalfOpen BreakerState = "half_open"
	BreakerOpen     BreakerState = "open"
)

// BreakerConfig tunes the closed→open→half_open→closed transitions.
type BreakerConfig struct {
	FailureThreshold int
	OpenDuration     time.Duration
	HalfOpenProbes   int
}

// Breaker is a single circuit breaker keyed by the caller (one per
// provider, or one per job kind) — the generalization of the teacher's MCP
// ClassifyError/RecoveryAction idiom into an explicit state machine instead
// of a one-shot retry decision.
type Breaker struct {
	mu               sync.Mutex
	cfg              BreakerConfig
	state            BreakerState
	consecutiveFails int
	openedAt         time.Time
	halfOpenProbes   int
}

// NewBreaker builds a closed breaker with the given config.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 2
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 30 * time.Minute
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	return &Breaker{cfg: cfg, state: BreakerClosed}
}

// Allow reports whether a call may proceed, transitioning open→half_open
// once OpenDuration has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) >= b.cfg.OpenDuration {
			b.state = BreakerHalfOpen
			b.halfOpenProbes = 0
			return true
		}
		return false
	case BreakerHalfOpen:
		if b.halfOpenProbes < b.cfg.HalfOpenProbes {
			b.halfOpenProbes++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess closes the breaker (from any state) and resets counters.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.consecutiveFails = 0
	b.halfOpenProbes = 0
}

// RecordFailure registers a failure. From half_open, any failure reopens
// the breaker immediately. From closed, the breaker opens once
// FailureThreshold consecutive failures accumulate.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.open()
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.cfg.FailureThreshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = time.Now()
	b.consecutiveFails = 0
	b.halfOpenProbes = 0
}

// State returns the breaker's current state, for health/status reporting.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
