package specsadapter

import (
	"context"
	"time"

	"github.com/TimurManjosov/goflagship/internal/specs"
	"github.com/jackc/pgx/v5/pgxpool"
)

// specsKVDDL is the adapter's single table. Applied once by the operator
// (e.g. via a migration tool); this adapter never runs DDL itself.
const specsKVDDL = `
CREATE TABLE IF NOT EXISTS specs_kv (
	key        text PRIMARY KEY,
	value      bytea NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// DataStoreAdapter implements spec.md §4.2's "DataStore" variant: specs are
// read from and written to an operator-owned store instead of Statsig's
// CDN, letting a company run its own specs distribution. Backed directly by
// pgxpool rather than the broken sqlc-generated internal/db/gen
// path (never checked into the repo); queries are plain pgx here. Grounded
// on internal/db/pool.go's pool construction style and
// statsig_data_store_specs_adapter.rs's get/set contract.
type DataStoreAdapter struct {
	Pool    *pgxpool.Pool
	SDKKey  string
	PollFor time.Duration
}

// NewDataStoreAdapter wires a DataStoreAdapter against an already-built
// pool, defaulting the poll interval to 10s when pollFor is not positive.
func NewDataStoreAdapter(pool *pgxpool.Pool, sdkKey string, pollFor time.Duration) *DataStoreAdapter {
	if pollFor <= 0 {
		pollFor = 10 * time.Second
	}
	return &DataStoreAdapter{Pool: pool, SDKKey: sdkKey, PollFor: pollFor}
}

func (a *DataStoreAdapter) key() string { return "specs:" + a.SDKKey }

func (a *DataStoreAdapter) TypeName() string { return "DataStoreAdapter" }

func (a *DataStoreAdapter) Start(ctx context.Context, listener Listener) error {
	return a.syncOnce(ctx, listener)
}

func (a *DataStoreAdapter) ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context))) {
	spawn("datastore_specs_bg_sync", func(taskCtx context.Context) {
		ticker := time.NewTicker(a.PollFor)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = a.syncOnce(taskCtx, listener)
			case <-taskCtx.Done():
				return
			}
		}
	})
}

func (a *DataStoreAdapter) Shutdown(timeout time.Duration) error { return nil }

func (a *DataStoreAdapter) syncOnce(ctx context.Context, listener Listener) error {
	var value []byte
	err := a.Pool.QueryRow(ctx, `SELECT value FROM specs_kv WHERE key = $1`, a.key()).Scan(&value)
	if err != nil {
		return err
	}
	data, hasUpdates, err := ParseDCS(value)
	if err != nil {
		return err
	}
	listener.DidReceiveSpecsUpdate(data, specs.AdapterSource("DataStore"), hasUpdates)
	return nil
}

// Set writes a specs payload into the shared store; used by an out-of-band
// publisher process, not by the adapter's own sync loop.
func (a *DataStoreAdapter) Set(ctx context.Context, body []byte) error {
	_, err := a.Pool.Exec(ctx,
		`INSERT INTO specs_kv (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		a.key(), body)
	return err
}
