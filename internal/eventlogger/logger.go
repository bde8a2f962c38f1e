package eventlogger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// retryable HTTP-ish failures are distinguished by the adapter returning a
// non-ErrNonRetryable error; see adapter.go.
const maxBatchRetries = 3

// Options configures the bounded queue sizes and flush cadence, per
// spec.md §6's event_logging_* configuration keys.
type Options struct {
	MaxQueueSize        int
	MaxPendingBatches   int
	FlushInterval       time.Duration
	SDKType             string
	SDKVersion          string
}

func (o Options) withDefaults() Options {
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = 10_000
	}
	if o.MaxPendingBatches <= 0 {
		o.MaxPendingBatches = 60
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 60 * time.Second
	}
	return o
}

// Logger owns the bounded in-memory queue and the bounded pending-batches
// queue described in spec.md §4.5. Enqueue only ever snapshots-and-rotates
// on hitting MaxQueueSize; the periodic ticker is the sole time-based
// drain trigger (SPEC_FULL.md §4.5 resolves the "when to flush" open
// question this way).
type Logger struct {
	opts    Options
	adapter Adapter

	mu        sync.Mutex
	buf       []Event
	lastFlush time.Time

	pending chan Batch

	droppedEvents atomic.Int64
	droppedBatches atomic.Int64

	onDrop func(count int64)

	shutdownOnce sync.Once
	stopCh       chan struct{}
	flusherDone  chan struct{}
	tickerDone   chan struct{}
}

// New constructs a Logger and starts its background flusher and ticker
// goroutines; call Shutdown to stop them.
func New(adapter Adapter, opts Options, onDrop func(count int64)) *Logger {
	opts = opts.withDefaults()
	l := &Logger{
		opts:        opts,
		adapter:     adapter,
		lastFlush:   time.Now(),
		pending:     make(chan Batch, opts.MaxPendingBatches),
		onDrop:      onDrop,
		stopCh:      make(chan struct{}),
		flusherDone: make(chan struct{}),
		tickerDone:  make(chan struct{}),
	}
	go l.flusherLoop()
	go l.tickerLoop()
	return l
}

// Enqueue adds an event. Never blocks: when the in-memory buffer hits its
// cap, the current contents are snapshotted into a batch and pushed to the
// pending-batches queue immediately (size-triggered snapshot).
func (l *Logger) Enqueue(e Event) {
	l.mu.Lock()
	l.buf = append(l.buf, e)
	full := len(l.buf) >= l.opts.MaxQueueSize
	var snap []Event
	var elapsed time.Duration
	if full {
		snap = l.buf
		l.buf = nil
		elapsed = time.Since(l.lastFlush)
		l.lastFlush = time.Now()
	}
	l.mu.Unlock()

	if full {
		l.pushBatch(snap, true, elapsed)
	}
}

// Flush initiates an async drain of whatever is currently buffered.
func (l *Logger) Flush() {
	l.mu.Lock()
	snap := l.buf
	l.buf = nil
	elapsed := time.Since(l.lastFlush)
	l.lastFlush = time.Now()
	l.mu.Unlock()

	if len(snap) == 0 {
		return
	}
	l.pushBatch(snap, false, elapsed)
}

func (l *Logger) pushBatch(events []Event, isLimitBatch bool, elapsed time.Duration) {
	if len(events) == 0 {
		return
	}
	meta := StatsigMetadata{
		SDKType:            l.opts.SDKType,
		SDKVersion:         l.opts.SDKVersion,
		FlushingIntervalMs: elapsed.Milliseconds(),
		IsLimitBatch:       isLimitBatch,
	}
	// The batch-level statsigMetadata reports the most recent sampling
	// decision among the events it carries (spec.md §4.5); most batches
	// carry exposures sampled under the same runtime sampling_mode, so this
	// is the decision a consumer replaying the batch would expect.
	for i := len(events) - 1; i >= 0; i-- {
		if !events[i].Sampling.isZero() {
			meta.SamplingMode = events[i].Sampling.Mode
			meta.SamplingRate = events[i].Sampling.Rate
			meta.ShadowLogged = events[i].Sampling.ShadowLogged
			break
		}
	}
	batch := Batch{
		Events:          events,
		StatsigMetadata: meta,
	}
	select {
	case l.pending <- batch:
	default:
		// Pending-batches queue is full: drop the newest batch and count it,
		// per spec.md §4.5.
		l.droppedBatches.Add(1)
		l.droppedEvents.Add(int64(len(events)))
		if l.onDrop != nil {
			l.onDrop(int64(len(events)))
		}
	}
}

func (l *Logger) tickerLoop() {
	defer close(l.tickerDone)
	ticker := time.NewTicker(l.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Flush()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Logger) flusherLoop() {
	defer close(l.flusherDone)
	for batch := range l.pending {
		l.deliverWithRetry(batch)
	}
}

func (l *Logger) deliverWithRetry(batch Batch) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := l.adapter.LogEvents(ctx, batch)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, ErrNonRetryable) {
			l.droppedBatches.Add(1)
			l.droppedEvents.Add(int64(len(batch.Events)))
			if l.onDrop != nil {
				l.onDrop(int64(len(batch.Events)))
			}
			return
		}

		batch.retryCount++
		if batch.retryCount > maxBatchRetries {
			l.droppedBatches.Add(1)
			l.droppedEvents.Add(int64(len(batch.Events)))
			if l.onDrop != nil {
				l.onDrop(int64(len(batch.Events)))
			}
			return
		}

		backoff := time.Duration(1<<uint(batch.retryCount)) * 100 * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-l.stopCh:
			// Shutdown is draining with a bounded timeout; don't keep
			// backing off, but still count the batch as dropped rather
			// than silently discarding it.
			l.droppedBatches.Add(1)
			l.droppedEvents.Add(int64(len(batch.Events)))
			if l.onDrop != nil {
				l.onDrop(int64(len(batch.Events)))
			}
			return
		}
	}
}

// DroppedEventCount returns the cumulative count of events dropped either
// from a full pending-batches queue or exhausted retries.
func (l *Logger) DroppedEventCount() int64 { return l.droppedEvents.Load() }

// Shutdown stops accepting the ticker's further flushes, drains whatever is
// queued best-effort within timeout, then aborts.
func (l *Logger) Shutdown(timeout time.Duration) {
	l.shutdownOnce.Do(func() {
		l.Flush()
		close(l.stopCh)
		<-l.tickerDone

		done := make(chan struct{})
		go func() {
			close(l.pending)
			<-l.flusherDone
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
		}
	})
}
