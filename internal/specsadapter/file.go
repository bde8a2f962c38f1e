package specsadapter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/TimurManjosov/goflagship/internal/hashing"
	"github.com/TimurManjosov/goflagship/internal/specs"
)

// FileAdapter caches the last-downloaded specs blob under
// <outputDir>/<djb2(sdkKey)>_specs.json, delivering it to the listener on
// Start so a cold process can come up warm, then delegates background
// syncing to an embedded HTTPAdapter and rewrites the cache file whenever
// the network reports a real update. Grounded on
// statsig_local_file_specs_adapter.rs.
type FileAdapter struct {
	filePath string
	http     *HTTPAdapter
}

func NewFileAdapter(sdkKey, outputDir string, http *HTTPAdapter) *FileAdapter {
	return &FileAdapter{
		filePath: fmt.Sprintf("%s/%d_specs.json", outputDir, hashing.DJB2(sdkKey)),
		http:     http,
	}
}

func (a *FileAdapter) TypeName() string { return "FileAdapter" }

func (a *FileAdapter) Start(ctx context.Context, listener Listener) error {
	if body, err := os.ReadFile(a.filePath); err == nil {
		if data, hasUpdates, perr := ParseDCS(body); perr == nil && hasUpdates {
			listener.DidReceiveSpecsUpdate(data, specs.AdapterSource("FileBased"), true)
		}
	}

	fileListener := &fileWritingListener{inner: listener, path: a.filePath}
	return a.http.Start(ctx, fileListener)
}

func (a *FileAdapter) ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context))) {
	fileListener := &fileWritingListener{inner: listener, path: a.filePath}
	a.http.ScheduleBackgroundSync(ctx, fileListener, spawn)
}

func (a *FileAdapter) Shutdown(timeout time.Duration) error { return a.http.Shutdown(timeout) }

// fileWritingListener wraps the real listener so every network update is
// also persisted to disk before being forwarded, keeping the on-disk cache
// current for the next process start.
type fileWritingListener struct {
	inner Listener
	path  string
}

func (f *fileWritingListener) CurrentSpecsInfo() (int64, string) {
	return f.inner.CurrentSpecsInfo()
}

func (f *fileWritingListener) DidReceiveSpecsUpdate(data specs.Data, source specs.Source, hasUpdates bool) {
	if hasUpdates {
		if body, err := encodeDCSForCache(data); err == nil {
			_ = os.WriteFile(f.path, body, 0o600)
		}
	}
	f.inner.DidReceiveSpecsUpdate(data, source, hasUpdates)
}
