package diagnostics

import (
	"math/rand"
	"sync"
)

const maxMarkerCount = 50

// DiagnosticsEvent is the event name the diagnostics queue flushes under.
const DiagnosticsEvent = "statsig::diagnostics"

// ContextType groups a marker timeline by phase.
type ContextType string

const (
	ContextInitialize ContextType = "initialize"
	ContextConfigSync ContextType = "config_sync"
)

const maxSamplingRate = 10000.0
const defaultSamplingRate = 100.0

// Enqueuer is the minimal event-sink dependency. *eventlogger.Logger does
// not satisfy it directly (its Enqueue takes an eventlogger.Event); the
// facade wraps the logger in a small adapter, so diagnostics never imports
// eventlogger.
type Enqueuer interface {
	Enqueue(event EnqueueableEvent)
}

// EnqueueableEvent is the shape diagnostics hands off to its Enqueuer; the
// facade adapts this into an eventlogger.Event.
type EnqueueableEvent struct {
	EventName string
	Metadata  map[string]any
}

// Diagnostics tracks marker timelines per ContextType and flushes a sampled
// summary event through an Enqueuer, per spec.md §4.5. One instance per
// Statsig facade; never package-level state.
type Diagnostics struct {
	mu            sync.Mutex
	markers       map[ContextType][]*Marker
	samplingRates map[string]float64
	activeContext ContextType

	sink Enqueuer
}

// New builds a Diagnostics with the default sampling rates: initialize
// 10000/10000, everything else 100/10000. Flushes outside the initialize
// context are sampled by the "id_list" or "dcs" rate for those keys and by
// 100/10000 otherwise; the "config_sync" entry seeded here is not read by
// the sampling decision.
func New(sink Enqueuer) *Diagnostics {
	return &Diagnostics{
		markers: make(map[ContextType][]*Marker),
		samplingRates: map[string]float64{
			"initialize":  10000,
			"config_sync": 1000,
		},
		activeContext: ContextInitialize,
		sink:          sink,
	}
}

func (d *Diagnostics) SetContext(ctx ContextType) {
	d.mu.Lock()
	d.activeContext = ctx
	d.mu.Unlock()
}

// SetSamplingRates merges new rates from a DCS response, clamped to
// [0, 10000].
func (d *Diagnostics) SetSamplingRates(rates map[string]float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range rates {
		if v < 0 {
			v = 0
		}
		if v > maxSamplingRate {
			v = maxSamplingRate
		}
		d.samplingRates[k] = v
	}
}

// AddMarker appends a marker to ctx's timeline (or the active context, when
// ctx is the zero value), dropping markers past the per-context cap rather
// than growing unbounded.
func (d *Diagnostics) AddMarker(ctx ContextType, m *Marker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ctx == "" {
		ctx = d.activeContext
	}
	if len(d.markers[ctx]) < maxMarkerCount {
		d.markers[ctx] = append(d.markers[ctx], m)
	}
}

func (d *Diagnostics) clearMarkers(ctx ContextType) {
	delete(d.markers, ctx)
}

// Flush formats ctx's current markers into a diagnostics event, samples it,
// enqueues on a hit, and always clears the timeline afterward.
func (d *Diagnostics) Flush(ctx ContextType, key KeyType) {
	d.mu.Lock()
	if ctx == "" {
		ctx = d.activeContext
	}
	markers := d.markers[ctx]
	if len(markers) == 0 {
		d.mu.Unlock()
		return
	}
	sampled := d.shouldSampleLocked(ctx, key)
	d.clearMarkers(ctx)
	d.mu.Unlock()

	if !sampled || d.sink == nil {
		return
	}

	d.sink.Enqueue(EnqueueableEvent{
		EventName: DiagnosticsEvent,
		Metadata: map[string]any{
			"context": string(ctx),
			"markers": markers,
		},
	})
}

func (d *Diagnostics) shouldSampleLocked(ctx ContextType, key KeyType) bool {
	roll := rand.Float64() * maxSamplingRate

	if ctx == ContextInitialize {
		return roll < d.rateOrDefault("initialize")
	}

	switch key {
	case KeyGetIDList, KeyGetIDListSources:
		return roll < d.rateOrDefault("id_list")
	case KeyDownloadConfigSpecs:
		return roll < d.rateOrDefault("dcs")
	}

	return roll < defaultSamplingRate
}

func (d *Diagnostics) rateOrDefault(key string) float64 {
	if v, ok := d.samplingRates[key]; ok {
		return v
	}
	return defaultSamplingRate
}
