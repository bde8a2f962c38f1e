// Package scheduler owns background task lifecycle: spawn a tagged task,
// wait on tasks sharing a tag, and shut everything down with a cancellation
// signal. Grounded on original_source's statsig_runtime.rs
// (spawn/await_tasks_with_tag/shutdown, tagged task registry,
// Notify-based cancellation), reimplemented idiomatically in Go: there is
// no tokio runtime to reuse or lazily build, so goroutines plus
// context.Context replace the Rust file's runtime-management half, and a
// sync.WaitGroup plus a plain map replace its JoinHandle registry. Shutdown
// follows this module's bounded-Shutdown(ctx)/signal.NotifyContext idiom.
package scheduler

import (
	"context"
	"sync"
)

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[string][]*task
	rootCtx  context.Context
	rootStop context.CancelFunc
	shutdown bool
}

// New returns a Scheduler whose tasks are all children of a single root
// cancellation signal, fired by Shutdown.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:    make(map[string][]*task),
		rootCtx:  ctx,
		rootStop: cancel,
	}
}

// Spawn runs f in a new goroutine tagged with tag. f receives a context
// that is canceled on Shutdown. Spawn on an already-shutdown scheduler is a no-op,
// matching original_source's is_shutdown guard.
func (s *Scheduler) Spawn(tag string, f func(ctx context.Context)) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.rootCtx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[tag] = append(s.tasks[tag], t)
	s.mu.Unlock()

	go func() {
		defer close(t.done)
		defer s.remove(tag, t)
		f(ctx)
	}()
}

func (s *Scheduler) remove(tag string, t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.tasks[tag]
	for i, cur := range list {
		if cur == t {
			s.tasks[tag] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// AwaitTasksWithTag blocks until every currently-tracked task sharing tag
// has returned.
func (s *Scheduler) AwaitTasksWithTag(tag string) {
	s.mu.Lock()
	list := append([]*task(nil), s.tasks[tag]...)
	s.mu.Unlock()

	for _, t := range list {
		<-t.done
	}
}

// Shutdown cancels every task's context and waits for them to observe it.
// Per spec.md §4.7's ordering guarantee, this only guarantees tasks have
// observed cancellation, not that they finished their work.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	all := make([]*task, 0)
	for _, list := range s.tasks {
		all = append(all, list...)
	}
	s.mu.Unlock()

	s.rootStop()
	for _, t := range all {
		<-t.done
	}
}
