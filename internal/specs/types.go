// Package specs defines the ruleset data model: Spec, Rule, Condition, and
// the Data bundle the spec store swaps atomically. Shape grounded on the
// flag/rule/condition types this module started from, expanded to the
// full field list in spec.md §3 and cross-checked against
// original_source's specs_response/spec_types.rs for field names.
package specs

import "github.com/TimurManjosov/goflagship/internal/dynamicvalue"

// EntityType enumerates the kinds of spec a single Spec record may be.
type EntityType string

const (
	EntityFeatureGate  EntityType = "feature_gate"
	EntityDynamicConfig EntityType = "dynamic_config"
	EntityExperiment   EntityType = "experiment"
	EntityLayer        EntityType = "layer"
	EntitySegment      EntityType = "segment"
	EntityHoldout      EntityType = "holdout"
	EntityAutotune     EntityType = "autotune"
)

// Condition is a single predicate, referenced by id from the shared
// condition map so duplicate conditions across rules cost O(1) memory.
type Condition struct {
	Type             string              `json:"type"`
	Operator         string              `json:"operator"`
	Field            string              `json:"field,omitempty"`
	TargetValue      dynamicvalue.Value  `json:"targetValue,omitempty"`
	AdditionalValues map[string]any      `json:"additionalValues,omitempty"`
	IDType           string              `json:"idType,omitempty"`
}

// Rule is one ordered branch of a Spec's evaluation.
type Rule struct {
	Name             string   `json:"name"`
	ID               string   `json:"id"`
	Salt             string   `json:"salt"`
	PassPercentage   float64  `json:"passPercentage"`
	ReturnValue      dynamicvalue.Value `json:"returnValue"`
	IDType           string   `json:"idType"`
	GroupName        string   `json:"groupName,omitempty"`
	ConfigDelegate   string   `json:"configDelegate,omitempty"`
	IsExperimentGroup bool    `json:"isExperimentGroup,omitempty"`
	SamplingRate     *uint64  `json:"samplingRate,omitempty"`

	// ConditionIDs references into Data.ConditionMap; kept separate from the
	// fully-resolved Conditions slice so a parsed ruleset round-trips without
	// duplicating condition bodies.
	ConditionIDs []string `json:"conditions"`
}

// Spec is one gate/dynamic-config/experiment/layer/segment/holdout/autotune.
type Spec struct {
	Name         string     `json:"name"`
	Type         EntityType `json:"type"`
	Entity       EntityType `json:"entity"`
	Salt         string     `json:"salt"`
	IDType       string     `json:"idType"`
	DefaultValue dynamicvalue.Value `json:"defaultValue"`
	Enabled      bool       `json:"enabled"`
	Rules        []Rule     `json:"rules"`

	ExplicitParameters  []string `json:"explicitParameters,omitempty"`
	HasSharedParams     bool     `json:"hasSharedParams,omitempty"`
	IsActive            bool     `json:"isActive,omitempty"`
	Version             int64    `json:"version,omitempty"`
	TargetAppIDs        []string `json:"targetAppIDs,omitempty"`
	ForwardAllExposures bool     `json:"forwardAllExposures,omitempty"`
}

// Source identifies where a spec-store update came from.
type Source string

const (
	SourceNetwork      Source = "Network"
	SourceBootstrap    Source = "Bootstrap"
	SourceUninitialized Source = "Uninitialized"
)

// AdapterSource wraps an adapter name into a Source value, mirroring
// spec.md's "Adapter(name)" variant.
func AdapterSource(name string) Source { return Source("Adapter(" + name + ")") }

// Data is the atomically-swappable bundle of all specs and shared state.
type Data struct {
	Time       int64  `json:"time"` // LCUT, ms
	Checksum   string `json:"checksum,omitempty"`
	AppID      string `json:"appID,omitempty"`
	CompanyID  string `json:"companyID,omitempty"`

	FeatureGates   map[string]Spec `json:"featureGates"`
	DynamicConfigs map[string]Spec `json:"dynamicConfigs"`
	LayerConfigs   map[string]Spec `json:"layerConfigs"`
	ConditionMap   map[string]Condition `json:"conditionMap"`

	ExperimentToLayer map[string]string `json:"experimentToLayer,omitempty"`

	SdkKeysToAppIDs       map[string]string `json:"sdkKeysToAppIDs,omitempty"`
	HashedSdkKeysToAppIDs map[uint64]string `json:"hashedSdkKeysToAppIDs,omitempty"`

	SdkConfigs map[string]dynamicvalue.Value `json:"sdkConfigs,omitempty"`
	SdkFlags   map[string]bool               `json:"sdkFlags,omitempty"`

	IDLists           map[string]bool            `json:"idLists,omitempty"`
	SessionReplayInfo map[string]any             `json:"sessionReplayInfo,omitempty"`
	CmabConfigs       map[string]any             `json:"cmabConfigs,omitempty"`
	Diagnostics       map[string]uint64          `json:"diagnostics,omitempty"`
}

// Empty returns a zero-value Data bundle suitable as the store's initial
// state before any update has been applied.
func Empty() Data {
	return Data{
		FeatureGates:   map[string]Spec{},
		DynamicConfigs: map[string]Spec{},
		LayerConfigs:   map[string]Spec{},
		ConditionMap:   map[string]Condition{},
	}
}

// Lookup finds a spec by name across all three spec maps, returning which
// map it came from.
func (d *Data) Lookup(name string) (Spec, EntityType, bool) {
	if s, ok := d.FeatureGates[name]; ok {
		return s, EntityFeatureGate, true
	}
	if s, ok := d.DynamicConfigs[name]; ok {
		return s, EntityDynamicConfig, true
	}
	if s, ok := d.LayerConfigs[name]; ok {
		return s, EntityLayer, true
	}
	return Spec{}, "", false
}

// ResolveConditions materializes the Rule's ConditionIDs against the shared
// condition map.
func (d *Data) ResolveConditions(r Rule) []Condition {
	out := make([]Condition, 0, len(r.ConditionIDs))
	for _, id := range r.ConditionIDs {
		if c, ok := d.ConditionMap[id]; ok {
			out = append(out, c)
		}
	}
	return out
}
