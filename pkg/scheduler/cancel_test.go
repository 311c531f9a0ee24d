package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTaskCancelRegistryCancelsRegisteredContexts(t *testing.T) {
	r := NewTaskCancelRegistry()
	taskID := uuid.New()

	ctx1, release1 := r.WithTask(context.Background(), taskID)
	defer release1()
	ctx2, release2 := r.WithTask(context.Background(), taskID)
	defer release2()

	n := r.CancelTask(taskID)
	assert.Equal(t, 2, n)

	select {
	case <-ctx1.Done():
	case <-time.After(time.Second):
		t.Fatal("ctx1 was not cancelled")
	}
	select {
	case <-ctx2.Done():
	case <-time.After(time.Second):
		t.Fatal("ctx2 was not cancelled")
	}
}

func TestTaskCancelRegistryIsScopedPerTask(t *testing.T) {
	r := NewTaskCancelRegistry()
	taskA, taskB := uuid.New(), uuid.New()

	ctxA, releaseA := r.WithTask(context.Background(), taskA)
	defer releaseA()
	ctxB, releaseB := r.WithTask(context.Background(), taskB)
	defer releaseB()

	r.CancelTask(taskA)

	select {
	case <-ctxA.Done():
	case <-time.After(time.Second):
		t.Fatal("ctxA was not cancelled")
	}
	select {
	case <-ctxB.Done():
		t.Fatal("ctxB should not have been cancelled")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTaskCancelRegistryReleaseDeregistersWithoutCancellingPeers(t *testing.T) {
	r := NewTaskCancelRegistry()
	taskID := uuid.New()

	_, release1 := r.WithTask(context.Background(), taskID)
	ctx2, release2 := r.WithTask(context.Background(), taskID)
	defer release2()

	release1()

	n := r.CancelTask(taskID)
	assert.Equal(t, 1, n)

	select {
	case <-ctx2.Done():
	case <-time.After(time.Second):
		t.Fatal("ctx2 was not cancelled")
	}
}

func TestTaskCancelRegistryCancelWithNoRegistrantsIsNoop(t *testing.T) {
	r := NewTaskCancelRegistry()
	assert.Equal(t, 0, r.CancelTask(uuid.New()))
}
