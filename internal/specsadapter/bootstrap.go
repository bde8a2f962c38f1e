package specsadapter

import (
	"context"
	"time"

	"github.com/TimurManjosov/goflagship/internal/specs"
)

// BootstrapAdapter delivers a caller-supplied specs payload once at Start
// and never syncs in the background — for offline/test environments or an
// initial specs blob embedded at process start, per spec.md §4.2's
// bootstrap variant.
type BootstrapAdapter struct {
	Body []byte
}

func (a *BootstrapAdapter) TypeName() string { return "BootstrapAdapter" }

func (a *BootstrapAdapter) Start(ctx context.Context, listener Listener) error {
	data, hasUpdates, err := ParseDCS(a.Body)
	if err != nil {
		return err
	}
	listener.DidReceiveSpecsUpdate(data, specs.SourceBootstrap, hasUpdates)
	return nil
}

func (a *BootstrapAdapter) ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context))) {
}

func (a *BootstrapAdapter) Shutdown(timeout time.Duration) error { return nil }
