package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpawnRunsTask(t *testing.T) {
	s := New()
	var ran int32
	s.Spawn("t1", func(ctx context.Context) {
		atomic.StoreInt32(&ran, 1)
	})
	s.AwaitTasksWithTag("t1")
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("expected task to run")
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	s := New()
	observed := make(chan struct{})
	s.Spawn("loop", func(ctx context.Context) {
		<-ctx.Done()
		close(observed)
	})

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-observed:
	case <-time.After(time.Second):
		t.Fatal("task never observed cancellation")
	}
	<-done
}

func TestSpawnAfterShutdownIsNoop(t *testing.T) {
	s := New()
	s.Shutdown()

	ran := false
	s.Spawn("late", func(ctx context.Context) { ran = true })
	s.AwaitTasksWithTag("late")
	if ran {
		t.Error("task spawned after shutdown must not run")
	}
}

func TestAwaitTasksWithTagOnlyWaitsMatchingTag(t *testing.T) {
	s := New()
	blocker := make(chan struct{})
	s.Spawn("slow", func(ctx context.Context) { <-blocker })
	s.Spawn("fast", func(ctx context.Context) {})

	done := make(chan struct{})
	go func() {
		s.AwaitTasksWithTag("fast")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AwaitTasksWithTag(fast) should not block on the slow task")
	}
	close(blocker)
	s.AwaitTasksWithTag("slow")
}
