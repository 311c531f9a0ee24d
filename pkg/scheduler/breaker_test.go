package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openveritas/veritas/pkg/store"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, OpenDuration: 50 * time.Millisecond})
	assert.Equal(t, BreakerClosed, b.State())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerHalfOpenAfterCooldownThenCloses(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond, HalfOpenProbes: 1})
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond, HalfOpenProbes: 1})
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
}

func TestPriorityOrderMatchesSpec(t *testing.T) {
	assert.Equal(t, []store.JobKind{
		store.JobSERP, store.JobPrefetch, store.JobExtract, store.JobEmbed,
		store.JobRerank, store.JobLLMFast, store.JobLLMSlow,
	}, PriorityOrder)
}
