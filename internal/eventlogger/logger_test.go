package eventlogger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeAdapter struct {
	mu      sync.Mutex
	batches []Batch
	failN   int
}

func (f *fakeAdapter) LogEvents(ctx context.Context, batch Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return context.DeadlineExceeded
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeAdapter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestEnqueueRotatesOnQueueCap(t *testing.T) {
	adapter := &fakeAdapter{}
	l := New(adapter, Options{MaxQueueSize: 3, FlushInterval: time.Hour}, nil)
	defer l.Shutdown(time.Second)

	for i := 0; i < 3; i++ {
		l.Enqueue(Event{EventName: "e"})
	}

	deadline := time.Now().Add(time.Second)
	for adapter.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if adapter.count() != 1 {
		t.Fatalf("expected one rotated batch once queue hit its cap, got %d", adapter.count())
	}
}

func TestShutdownDrainsBufferedEvents(t *testing.T) {
	adapter := &fakeAdapter{}
	l := New(adapter, Options{MaxQueueSize: 100, FlushInterval: time.Hour}, nil)
	l.Enqueue(Event{EventName: "e1"})
	l.Enqueue(Event{EventName: "e2"})

	l.Shutdown(time.Second)

	if adapter.count() != 1 {
		t.Fatalf("expected shutdown to flush the buffered events as one batch, got %d batches", adapter.count())
	}
}

func TestFlushReportsActualElapsedInterval(t *testing.T) {
	adapter := &fakeAdapter{}
	l := New(adapter, Options{MaxQueueSize: 100, FlushInterval: time.Hour}, nil)
	defer l.Shutdown(time.Second)

	time.Sleep(20 * time.Millisecond)
	l.Enqueue(Event{EventName: "e"})
	l.Flush()

	deadline := time.Now().Add(time.Second)
	for adapter.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if adapter.count() != 1 {
		t.Fatalf("expected one flushed batch, got %d", adapter.count())
	}
	got := adapter.batches[0].StatsigMetadata.FlushingIntervalMs
	if got <= 0 || got >= time.Hour.Milliseconds() {
		t.Errorf("FlushingIntervalMs = %d, want a small positive value reflecting actual elapsed time, not the hour-long configured interval", got)
	}
}

func TestFlushPopulatesSamplingMetadataFromLastEvent(t *testing.T) {
	adapter := &fakeAdapter{}
	l := New(adapter, Options{MaxQueueSize: 100, FlushInterval: time.Hour}, nil)
	defer l.Shutdown(time.Second)

	l.Enqueue(Event{EventName: "e1"})
	l.Enqueue(Event{EventName: "e2", Sampling: EventSampling{Mode: "shadow", Rate: "1:100", ShadowLogged: "logged"}})
	l.Flush()

	deadline := time.Now().Add(time.Second)
	for adapter.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if adapter.count() != 1 {
		t.Fatalf("expected one flushed batch, got %d", adapter.count())
	}
	meta := adapter.batches[0].StatsigMetadata
	if meta.SamplingMode != "shadow" || meta.SamplingRate != "1:100" || meta.ShadowLogged != "logged" {
		t.Errorf("StatsigMetadata sampling fields = %+v, want populated from the last sampled event", meta)
	}
}

func TestRetryEventuallyDropsAndCounts(t *testing.T) {
	adapter := &fakeAdapter{failN: maxBatchRetries + 1}
	var dropped int64
	l := New(adapter, Options{MaxQueueSize: 1, FlushInterval: time.Hour}, func(n int64) { dropped += n })
	l.Enqueue(Event{EventName: "e"})

	l.Shutdown(2 * time.Second)

	if dropped == 0 {
		t.Error("expected exhausted retries to report a dropped-event count")
	}
}
