// Package specstore holds the current ruleset snapshot behind a single
// atomic pointer. Store is an instance owned by the facade, never a
// package-level global: per spec.md §9's redesign note ("global mutable
// state -> per-SDK-key registries"), nothing here is a package-level
// variable.
package specstore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/goflagship/internal/specs"
)

// Info is what adapters need to build a conditional GET.
type Info struct {
	LCUT       int64
	Checksum   string
	ReceivedAt int64
	Source     specs.Source
}

// Store is safe for concurrent use: Load never blocks on a concurrent
// ApplyUpdate, and ApplyUpdate calls are serialized by an internal mutex.
type Store struct {
	current atomic.Pointer[snapshot]
	writeMu sync.Mutex
}

type snapshot struct {
	data       specs.Data
	source     specs.Source
	receivedAt int64
}

// New returns a Store seeded with an empty, disabled-by-default ruleset and
// source Uninitialized, matching spec.md's lifecycle description.
func New() *Store {
	s := &Store{}
	s.current.Store(&snapshot{
		data:       specs.Empty(),
		source:     specs.SourceUninitialized,
		receivedAt: nowMS(),
	})
	return s
}

// Load returns the current snapshot. The returned specs.Data must be treated
// as read-only by the caller: it is safe to use for the duration of one
// evaluation even if ApplyUpdate is called concurrently, since a new
// snapshot never mutates an already-published one.
func (s *Store) Load() specs.Data {
	return s.current.Load().data
}

// CurrentInfo returns metadata about the current snapshot for adapters to
// build conditional GETs.
func (s *Store) CurrentInfo() Info {
	snap := s.current.Load()
	return Info{
		LCUT:       snap.data.Time,
		Checksum:   snap.data.Checksum,
		ReceivedAt: snap.receivedAt,
		Source:     snap.source,
	}
}

// ApplyUpdate is the single write operation, invoked by adapters. When
// hasUpdates is false the store does not swap the snapshot: only
// receivedAt is refreshed, per spec.md §4.1.
func (s *Store) ApplyUpdate(data specs.Data, source specs.Source, hasUpdates bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := nowMS()
	if !hasUpdates {
		prev := s.current.Load()
		s.current.Store(&snapshot{data: prev.data, source: prev.source, receivedAt: now})
		return
	}

	s.current.Store(&snapshot{data: data, source: source, receivedAt: now})
}

func nowMS() int64 { return time.Now().UnixMilli() }
