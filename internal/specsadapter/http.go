package specsadapter

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/TimurManjosov/goflagship/internal/network"
	"github.com/TimurManjosov/goflagship/internal/specs"
)

const defaultSpecsURL = "https://api.statsigcdn.com/v2/download_config_specs"
const defaultSyncIntervalMS = 10_000

// HTTPAdapter polls `<specs_url>/<sdk_key>.json` for updates, sending
// sinceTime/checksum whenever the listener already knows them. Grounded on
// statsig_http_specs_adapter.rs.
type HTTPAdapter struct {
	Client       *network.Client
	URL          string
	SyncInterval time.Duration

	mu       sync.Mutex
	listener Listener
}

// NewHTTPAdapter builds an HTTPAdapter targeting <specsBaseURL or
// default>/<sdkKey>.json.
func NewHTTPAdapter(sdkKey string, specsBaseURL string, syncIntervalMS int, client *network.Client) *HTTPAdapter {
	base := specsBaseURL
	if base == "" {
		base = defaultSpecsURL
	}
	interval := syncIntervalMS
	if interval <= 0 {
		interval = defaultSyncIntervalMS
	}
	return &HTTPAdapter{
		Client:       client,
		URL:          fmt.Sprintf("%s/%s.json", base, sdkKey),
		SyncInterval: time.Duration(interval) * time.Millisecond,
	}
}

func (a *HTTPAdapter) TypeName() string { return "HTTPAdapter" }

func (a *HTTPAdapter) Start(ctx context.Context, listener Listener) error {
	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()
	return a.syncOnce(ctx)
}

func (a *HTTPAdapter) ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context))) {
	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()
	spawn("http_specs_bg_sync", func(taskCtx context.Context) {
		ticker := time.NewTicker(a.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = a.syncOnce(taskCtx)
			case <-taskCtx.Done():
				return
			}
		}
	})
}

func (a *HTTPAdapter) Shutdown(timeout time.Duration) error { return nil }

func (a *HTTPAdapter) syncOnce(ctx context.Context) error {
	a.mu.Lock()
	listener := a.listener
	a.mu.Unlock()
	if listener == nil {
		return fmt.Errorf("specsadapter: HTTPAdapter not started")
	}

	lcut, checksum := listener.CurrentSpecsInfo()
	params := map[string]string{}
	if lcut > 0 {
		params["sinceTime"] = strconv.FormatInt(lcut, 10)
	}
	if checksum != "" {
		params["checksum"] = checksum
	}

	resp, err := a.Client.Get(ctx, network.Args{
		URL:           a.URL,
		QueryParams:   params,
		Retries:       2,
		AcceptGzip:    true,
	})
	if err != nil {
		return fmt.Errorf("specsadapter: fetch specs: %w", err)
	}

	data, hasUpdates, err := ParseDCS(resp.Body)
	if err != nil {
		return fmt.Errorf("specsadapter: parse specs: %w", err)
	}

	listener.DidReceiveSpecsUpdate(data, specs.SourceNetwork, hasUpdates)
	return nil
}
