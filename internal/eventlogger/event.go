// Package eventlogger implements the bounded, backpressured exposure/event
// pipeline: a bounded channel queue, background worker, non-blocking
// drop-on-full enqueue, exponential-backoff retry loop, and a bounded-time
// drain on shutdown, cross-checked against original_source's event_logging
// internals for the batch/metadata shape.
package eventlogger

import (
	"time"

	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
	"github.com/google/uuid"
)

// Event names, per spec.md §4.5.
const (
	EventGateExposure   = "statsig::gate_exposure"
	EventConfigExposure = "statsig::config_exposure"
	EventLayerExposure  = "statsig::layer_exposure"
	EventDiagnostics    = "statsig::diagnostics"
	EventDroppedCounter = "statsig::log_event_dropped_event_count"
)

// Event is one prepared exposure or custom event.
type Event struct {
	ID                 string                         `json:"-"`
	EventName          string                          `json:"eventName"`
	User               *statsiguser.Loggable           `json:"user,omitempty"`
	Value              any                             `json:"value,omitempty"`
	Metadata           map[string]any                  `json:"metadata,omitempty"`
	Time               int64                           `json:"time"`
	SecondaryExposures []evaluator.SecondaryExposure    `json:"secondaryExposures,omitempty"`

	// Sampling, when set by the caller, carries the sampling processor's
	// verdict for this one event; the batch that ends up containing it
	// reports the last such verdict in its statsigMetadata (spec.md §4.5).
	// Not part of the event's own wire shape.
	Sampling EventSampling `json:"-"`
}

// EventSampling is the per-event slice of a sampling.Decision the logger
// needs, kept free of an import on the sampling package itself.
type EventSampling struct {
	Mode         string
	Rate         string
	ShadowLogged string
}

func (s EventSampling) isZero() bool {
	return s.Mode == "" && s.Rate == "" && s.ShadowLogged == ""
}

// NewExposureEvent builds a gate/config/experiment/layer exposure event,
// per spec.md §4.5's exposure-preparation paragraph.
func NewExposureEvent(eventName string, user statsiguser.User, metadata map[string]any, secondary []evaluator.SecondaryExposure) Event {
	loggable := user.ForLogging()
	return Event{
		ID:                 uuid.NewString(),
		EventName:          eventName,
		User:               &loggable,
		Metadata:           metadata,
		Time:               time.Now().UnixMilli(),
		SecondaryExposures: secondary,
	}
}

// Batch is what the adapter's LogEvents receives: the events plus the
// per-batch statsigMetadata envelope (spec.md §6's log-event request body).
type Batch struct {
	Events          []Event        `json:"events"`
	StatsigMetadata StatsigMetadata `json:"statsigMetadata"`

	retryCount int
}

// StatsigMetadata carries SDK identity and flush-shape bookkeeping, per
// spec.md §4.5.
type StatsigMetadata struct {
	SDKType           string `json:"sdkType"`
	SDKVersion        string `json:"sdkVersion"`
	FlushingIntervalMs int64  `json:"flushingIntervalMs"`
	IsLimitBatch      bool   `json:"isLimitBatch"`
	SamplingMode      string `json:"samplingMode,omitempty"`
	SamplingRate      string `json:"samplingRate,omitempty"`
	ShadowLogged      string `json:"shadowLogged,omitempty"`
}

// LogEventResponse is spec.md §6's log-event response shape.
type LogEventResponse struct {
	Success bool `json:"success"`
}
