// Package sampling implements the exposure sampling decision described in
// spec.md §4.4: dedupe, first-seen-always-logs, special-case rates, and the
// on/shadow/off sampling_mode dispatch. Grounded on
// original_source/statsig-rust/src/sampling_processor.rs, whose shadow-mode
// behavior resolves spec.md §9's Open Question #2 (see SPEC_FULL.md §4.4):
// shadow mode always sends the exposure but annotates it with the decision
// on-mode would have produced.
package sampling

import (
	"strconv"
	"time"

	"github.com/TimurManjosov/goflagship/internal/hashing"
)

// Mode mirrors original_source's SamplingMode.
type Mode string

const (
	ModeOn     Mode = "on"
	ModeShadow Mode = "shadow"
	ModeOff    Mode = ""
)

// Status mirrors original_source's SamplingStatus.
type Status string

const (
	StatusLogged  Status = "logged"
	StatusDropped Status = "dropped"
	StatusNone    Status = ""
)

// Decision is the processor's verdict for one candidate exposure.
type Decision struct {
	ShouldSendExposure bool
	SamplingRate       *uint64
	Status             Status
	Mode               Mode
	Kind               Kind
}

// Kind enumerates the four decision kinds named in spec.md §4.4.
type Kind string

const (
	KindForceSampled Kind = "ForceSampled"
	KindSampled      Kind = "Sampled"
	KindNotSampled   Kind = "NotSampled"
	KindDeduped      Kind = "Deduped"
)

func forceLogged(mode Mode) Decision {
	return Decision{ShouldSendExposure: true, Status: StatusNone, Mode: mode, Kind: KindForceSampled}
}

// specialCaseRules per spec.md §4.4 ("disabled, default, empty rule id").
var specialCaseRules = map[string]bool{"disabled": true, "default": true, "": true}

const (
	dedupeTTL    = 60 * time.Second
	dedupeCap    = 100_000
	firstSeenTTL = 60 * time.Second
	firstSeenCap = 100_000
)

// Processor holds the dedupe and first-seen TTL sets; construct one per
// Statsig instance.
type Processor struct {
	dedupe    *TTLSet
	firstSeen *TTLSet
}

// New builds a Processor with spec.md's default TTL/size bounds.
func New() *Processor {
	return &Processor{
		dedupe:    NewTTLSet(dedupeTTL, dedupeCap),
		firstSeen: NewTTLSet(firstSeenTTL, firstSeenCap),
	}
}

// Input carries everything GetDecision needs for one exposure candidate.
type Input struct {
	SpecName    string
	RuleID      string
	Value       string // stringified evaluation result, part of the dedupe key
	UserIDHash  string

	IsLayerExposure bool
	LayerName       string
	ExperimentName  string
	ParamName       string

	SamplingMode             Mode
	SpecialCaseSamplingRate  *uint64
	RuleSamplingRate         *uint64
	ForwardAllExposures      bool
	HasSeenAnalyticalGates   bool
}

// exposureKey builds the sampling-key string, using the two formats
// original_source distinguishes (layer vs gate/config).
func (in Input) exposureKey() string {
	if in.IsLayerExposure {
		return "n:" + in.LayerName + ";e:" + in.ExperimentName + ";p:" + in.ParamName + ";u:" + in.UserIDHash + ";r:" + in.RuleID
	}
	return "n:" + in.SpecName + ";u:" + in.UserIDHash + ";r:" + in.RuleID + ";v:" + in.Value
}

func (in Input) dedupeKey() string {
	return in.SpecName + "\x00" + in.Value + "\x00" + in.RuleID + "\x00" + in.UserIDHash
}

func (in Input) firstSeenKey() string {
	return in.SpecName + "\x00" + in.RuleID
}

// GetDecision is the processor's single entry point.
func (p *Processor) GetDecision(in Input) Decision {
	if in.ForwardAllExposures || in.HasSeenAnalyticalGates || in.SamplingMode == ModeOff {
		return forceLogged(in.SamplingMode)
	}

	if p.dedupe.ContainsOrAdd(in.dedupeKey()) {
		return Decision{ShouldSendExposure: false, Status: StatusNone, Mode: in.SamplingMode, Kind: KindDeduped}
	}

	if !p.firstSeen.ContainsOrAdd(in.firstSeenKey()) {
		return forceLogged(in.SamplingMode)
	}

	shouldSend, rate := evaluateExposureSending(in)

	switch in.SamplingMode {
	case ModeOn:
		status := StatusLogged
		if !shouldSend {
			status = StatusDropped
		}
		return Decision{ShouldSendExposure: shouldSend, SamplingRate: rate, Status: status, Mode: ModeOn, Kind: kindFor(shouldSend)}

	case ModeShadow:
		// Shadow mode always sends, but annotates the decision on-mode would
		// have produced (spec.md §9 Open Question #2, resolved via
		// sampling_processor.rs).
		status := StatusLogged
		if !shouldSend {
			status = StatusDropped
		}
		return Decision{ShouldSendExposure: true, SamplingRate: rate, Status: status, Mode: ModeShadow, Kind: kindFor(shouldSend)}

	default:
		return forceLogged(in.SamplingMode)
	}
}

func kindFor(shouldSend bool) Kind {
	if shouldSend {
		return KindSampled
	}
	return KindNotSampled
}

// evaluateExposureSending implements spec.md §4.4's rate resolution:
// special-case rules use special_case_sampling_rate when set, otherwise the
// rule's own sampling_rate; absent both, no sampling is applied.
func evaluateExposureSending(in Input) (bool, *uint64) {
	var rate *uint64
	if specialCaseRules[in.RuleID] {
		rate = in.SpecialCaseSamplingRate
	} else {
		rate = in.RuleSamplingRate
	}
	if rate == nil {
		return true, nil
	}
	keep := hashing.SamplingKeyMod(in.exposureKey(), *rate) == 0
	return keep, rate
}

// RateLabel renders a sampling rate for statsigMetadata.samplingRate.
func RateLabel(rate *uint64) string {
	if rate == nil {
		return ""
	}
	return strconv.FormatUint(*rate, 10)
}
