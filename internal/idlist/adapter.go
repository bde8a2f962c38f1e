// Package idlist implements spec.md §4.10/§6's id-list sync: poll
// get_id_lists for the list manifest, then range-request each list's delta
// file and apply +/- hashed-id lines to an in-memory membership set.
// Grounded on internal/network's retry/backoff client and the
// webhook dispatcher's bounded-queue-of-work processing loop.
package idlist

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/TimurManjosov/goflagship/internal/network"
)

// ManifestEntry is one entry of the get_id_lists response.
type ManifestEntry struct {
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	FileID       string `json:"fileID"`
	CreationTime int64  `json:"creationTime"`
}

// Adapter owns the id-list membership sets and their sync loop. One
// instance per Statsig facade; never package-level state.
type Adapter struct {
	Client        *network.Client
	IDListsURL    string
	SyncInterval  time.Duration

	mu       sync.RWMutex
	lists    map[string]map[string]struct{}
	fileIDs  map[string]string
	sizes    map[string]int64
}

func New(client *network.Client, idListsURL string, syncInterval time.Duration) *Adapter {
	if syncInterval <= 0 {
		syncInterval = 60 * time.Second
	}
	return &Adapter{
		Client:       client,
		IDListsURL:   idListsURL,
		SyncInterval: syncInterval,
		lists:        make(map[string]map[string]struct{}),
		fileIDs:      make(map[string]string),
		sizes:        make(map[string]int64),
	}
}

// Contains reports whether hashedID is a current member of listName.
func (a *Adapter) Contains(listName, hashedID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	set, ok := a.lists[listName]
	if !ok {
		return false
	}
	_, member := set[hashedID]
	return member
}

// Start runs one full sync pass: fetch the manifest, then each list's
// delta.
func (a *Adapter) Start(ctx context.Context) error {
	return a.syncOnce(ctx)
}

// ScheduleBackgroundSync registers the tagged periodic sync task with the
// scheduler.
func (a *Adapter) ScheduleBackgroundSync(ctx context.Context, spawn func(tag string, f func(ctx context.Context))) {
	spawn("id_list_sync", func(taskCtx context.Context) {
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

func (a *Adapter) syncOnce(ctx context.Context) error {
	manifest, err := a.fetchManifest(ctx)
	if err != nil {
		return err
	}

	for name, entry := range manifest {
		if err := a.syncList(ctx, name, entry); err != nil {
			continue // one bad list must not block the others
		}
	}

	a.mu.Lock()
	for name := range a.lists {
		if _, stillPresent := manifest[name]; !stillPresent {
			delete(a.lists, name)
			delete(a.fileIDs, name)
			delete(a.sizes, name)
		}
	}
	a.mu.Unlock()

	return nil
}

func (a *Adapter) fetchManifest(ctx context.Context) (map[string]ManifestEntry, error) {
	resp, err := a.Client.Get(ctx, network.Args{
		URL:     strings.TrimRight(a.IDListsURL, "/") + "/get_id_lists",
		Retries: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("idlist: fetch manifest: %w", err)
	}
	var manifest map[string]ManifestEntry
	if err := json.Unmarshal(resp.Body, &manifest); err != nil {
		return nil, fmt.Errorf("idlist: parse manifest: %w", err)
	}
	return manifest, nil
}

func (a *Adapter) syncList(ctx context.Context, name string, entry ManifestEntry) error {
	a.mu.RLock()
	knownFileID := a.fileIDs[name]
	knownSize := a.sizes[name]
	a.mu.RUnlock()

	headers := map[string]string{}
	if knownFileID == entry.FileID && knownSize > 0 {
		headers["Range"] = fmt.Sprintf("bytes=%d-", knownSize)
	}

	resp, err := a.Client.Get(ctx, network.Args{URL: entry.URL, Headers: headers, Retries: 2})
	if err != nil {
		return fmt.Errorf("idlist: fetch %s: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	set, ok := a.lists[name]
	if !ok || knownFileID != entry.FileID {
		set = make(map[string]struct{})
		a.lists[name] = set
	}

	applyDeltaLines(set, resp.Body)

	a.fileIDs[name] = entry.FileID
	a.sizes[name] = entry.Size
	return nil
}

func applyDeltaLines(set map[string]struct{}, body []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		op, id := line[0], line[1:]
		switch op {
		case '+':
			set[id] = struct{}{}
		case '-':
			delete(set, id)
		}
	}
}
