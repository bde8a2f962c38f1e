// Package specsadapter implements spec.md §4.2's sync pipeline contract
// and its concrete variants (HTTP, file, Postgres-backed data store,
// bootstrap, composite). Contract shape grounded on
// original_source/statsig-lib/src/specs_adapter/statsig_http_specs_adapter.rs;
// the bounded-queue retry idiom follows this module's HTTP client and event
// logger.
package specsadapter

import (
	"context"
	"time"

	"github.com/TimurManjosov/goflagship/internal/specs"
)

// Listener is notified whenever an adapter receives (or fails to receive)
// a specs update. specstore.Store implements this by way of a thin
// wrapper in the facade.
type Listener interface {
	CurrentSpecsInfo() (lcut int64, checksum string)
	DidReceiveSpecsUpdate(data specs.Data, source specs.Source, hasUpdates bool)
}

// Adapter is the sync pipeline contract every concrete variant satisfies:
// start once, optionally run a background poll loop, and shut down
// within a bounded timeout.
type Adapter interface {
	Start(ctx context.Context, listener Listener) error
	ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context)))
	Shutdown(timeout time.Duration) error
	TypeName() string
}
