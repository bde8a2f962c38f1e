// Package diagnostics records init/sync phase markers and flushes them
// through the event queue as a diagnostics event, per spec.md §4.5. Marker
// shape grounded on
// original_source/statsig-rust/src/sdk_diagnostics/marker.rs; the fluent
// With*-chained construction API mirrors this codebase's builder-style
// option types.
package diagnostics

import "time"

// KeyType names the phase a marker belongs to.
type KeyType string

const (
	KeyInitialize          KeyType = "initialize"
	KeyOverall             KeyType = "overall"
	KeyDownloadConfigSpecs KeyType = "download_config_specs"
	KeyGetIDList           KeyType = "get_id_list"
	KeyGetIDListSources    KeyType = "get_id_list_sources"
)

// StepType distinguishes in-process work from a network round trip.
type StepType string

const (
	StepProcess        StepType = "process"
	StepNetworkRequest StepType = "network_request"
)

// ActionType marks the start or end of a step.
type ActionType string

const (
	ActionStart ActionType = "start"
	ActionEnd   ActionType = "end"
)

// Marker is one diagnostic data point in a phase's timeline.
type Marker struct {
	Key       KeyType    `json:"key"`
	Action    ActionType `json:"action"`
	Timestamp int64      `json:"timestamp"`

	Step         *StepType         `json:"step,omitempty"`
	Attempt      *int              `json:"attempt,omitempty"`
	ConfigName   *string           `json:"configName,omitempty"`
	Error        map[string]string `json:"error,omitempty"`
	IDListCount  *int              `json:"idListCount,omitempty"`
	MarkerID     *string           `json:"markerID,omitempty"`
	Message      *string           `json:"message,omitempty"`
	SDKRegion    *string           `json:"sdkRegion,omitempty"`
	StatusCode   *int              `json:"statusCode,omitempty"`
	Success      *bool             `json:"success,omitempty"`
	URL          *string           `json:"url,omitempty"`
	ConfigReady  *bool             `json:"configSpecReady,omitempty"`
	Source       *string           `json:"source,omitempty"`
}

// NewMarker starts building a marker for key/action/step, stamped with the
// current time.
func NewMarker(key KeyType, action ActionType, step *StepType) *Marker {
	return &Marker{
		Key:       key,
		Action:    action,
		Step:      step,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (m *Marker) WithSuccess(success bool) *Marker {
	m.Success = &success
	return m
}

func (m *Marker) WithStatusCode(code int) *Marker {
	m.StatusCode = &code
	return m
}

func (m *Marker) WithAttempt(attempt int) *Marker {
	m.Attempt = &attempt
	return m
}

func (m *Marker) WithURL(url string) *Marker {
	m.URL = &url
	return m
}

func (m *Marker) WithMessage(msg string) *Marker {
	m.Message = &msg
	return m
}

func (m *Marker) WithConfigSpecReady(ready bool) *Marker {
	m.ConfigReady = &ready
	return m
}

func (m *Marker) WithSource(source string) *Marker {
	m.Source = &source
	return m
}

func (m *Marker) WithIDListCount(count int) *Marker {
	m.IDListCount = &count
	return m
}

func (m *Marker) WithError(err map[string]string) *Marker {
	m.Error = err
	return m
}

func step(s StepType) *StepType { return &s }

// ProcessStep and NetworkStep are convenience constructors for the Step
// pointer field.
var (
	ProcessStep = step(StepProcess)
	NetworkStep = step(StepNetworkRequest)
)
