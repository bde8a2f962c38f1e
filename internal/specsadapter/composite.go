package specsadapter

import (
	"context"
	"fmt"
	"time"
)

// CompositeAdapter tries each underlying adapter's Start in order, keeping
// the first one that succeeds, then runs every adapter's background sync
// concurrently — letting, e.g., a bootstrap blob satisfy Start immediately
// while HTTP polling still keeps the store fresh. Grounded on spec.md
// §4.2's "Composite" variant.
type CompositeAdapter struct {
	Adapters []Adapter

	started Adapter
}

func (a *CompositeAdapter) TypeName() string { return "CompositeAdapter" }

func (a *CompositeAdapter) Start(ctx context.Context, listener Listener) error {
	var lastErr error
	for _, adapter := range a.Adapters {
		if err := adapter.Start(ctx, listener); err != nil {
			lastErr = err
			continue
		}
		a.started = adapter
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("specsadapter: all composite adapters failed to start: %w", lastErr)
	}
	return fmt.Errorf("specsadapter: no adapters configured")
}

func (a *CompositeAdapter) ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context))) {
	for _, adapter := range a.Adapters {
		adapter.ScheduleBackgroundSync(ctx, listener, spawn)
	}
}

func (a *CompositeAdapter) Shutdown(timeout time.Duration) error {
	var firstErr error
	for _, adapter := range a.Adapters {
		if err := adapter.Shutdown(timeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
