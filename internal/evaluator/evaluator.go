// Package evaluator implements the deterministic, side-effect-free rule
// engine mapping (user, spec_name) to an evaluation result plus an
// exposure trail: ordered rule iteration dispatching to the operator table,
// generalized to spec.md §4.3's full algorithm, condition vocabulary, and
// percentage bucketing formula (cross-checked against original_source).
package evaluator

import (
	"time"

	"github.com/TimurManjosov/goflagship/internal/hashing"
	"github.com/TimurManjosov/goflagship/internal/specs"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
)

// Store is the read-only slice of specstore.Store the evaluator needs.
type Store interface {
	Load() specs.Data
}

// JSONLogicFunc evaluates a JSON Logic expression string against a user,
// backing the additive json_logic condition_type (SPEC_FULL.md §4.3).
type JSONLogicFunc func(expression string, user statsiguser.User) bool

// IDListChecker is the read-only membership lookup the segment operators
// need (in_segment_list/passes_segment/fails_segment). Backed by
// internal/idlist.Adapter; nil means "no id lists synced yet", and every
// membership check reports false.
type IDListChecker interface {
	Contains(listName, hashedID string) bool
}

// Evaluator is stateless aside from its Store reference and optional
// json_logic hook; every Evaluate call is pure given a fixed snapshot.
type Evaluator struct {
	store     Store
	jsonLogic JSONLogicFunc
	idLists   IDListChecker
}

// New builds an Evaluator reading specs from store.
func New(store Store, jsonLogic JSONLogicFunc, idLists IDListChecker) *Evaluator {
	return &Evaluator{store: store, jsonLogic: jsonLogic, idLists: idLists}
}

// Evaluate is the public entry point: (user, spec_name) -> Result, against
// the current snapshot.
func (e *Evaluator) Evaluate(user statsiguser.User, specName string) Result {
	data := e.store.Load()
	now := time.Now()
	res, err := e.evaluateGateInternal(&data, specName, user, now, 0)
	if err != nil {
		return ErrorResult()
	}
	return res
}

// evaluateGateInternal is the recursive core: depth tracks pass_gate/
// fail_gate recursion so it can be bounded (spec.md §9).
func (e *Evaluator) evaluateGateInternal(data *specs.Data, name string, user statsiguser.User, now time.Time, depth int) (Result, error) {
	spec, _, found := data.Lookup(name)
	if !found {
		return Result{RuleID: "", Reason: ReasonUnrecognized}, nil
	}

	if !spec.Enabled {
		return Result{
			JSONValue: spec.DefaultValue,
			BoolValue: boolOf(spec.DefaultValue),
			RuleID:    "disabled",
			IDType:    spec.IDType,
			Version:   spec.Version,
			Reason:    ReasonDisabled,
		}, nil
	}

	st := &evalState{data: data, user: user, now: now, depth: depth, eval: e}

	for _, rule := range spec.Rules {
		conds := data.ResolveConditions(rule)
		matched, err := st.evaluateConditions(conds)
		if err != nil {
			return Result{}, err
		}
		if !matched {
			continue
		}

		unitID, hasUnit := user.UnitID(firstNonEmpty(rule.IDType, spec.IDType))
		passed := hasUnit && hashing.PassesPercentage(spec.Salt, rule.Salt, unitID, rule.PassPercentage)

		value := spec.DefaultValue
		ruleIDSuffix := ""
		if passed {
			value = rule.ReturnValue
		} else {
			ruleIDSuffix = ":" + rule.ID // distinguishes a matched-but-failed-percentage outcome
		}

		result := Result{
			JSONValue:          value,
			BoolValue:          boolOf(value),
			RuleID:             rule.ID,
			RuleIDSuffix:       ruleIDSuffix,
			GroupName:          rule.GroupName,
			IDType:             rule.IDType,
			IsExperimentGroup:  rule.IsExperimentGroup,
			IsExperimentActive: spec.IsActive,
			IsInLayer:          spec.Entity == specs.EntityLayer,
			ExplicitParameters: spec.ExplicitParameters,
			ConfigDelegate:     rule.ConfigDelegate,
			SecondaryExposures: dedupeExposures(st.expos),
			Version:            spec.Version,
			ForwardAllExposures: spec.ForwardAllExposures,
			Reason:             ReasonTargetingMatch,
		}
		if rule.SamplingRate != nil {
			result.SamplingRate = rule.SamplingRate
		}

		if rule.ConfigDelegate != "" {
			result.UndelegatedSecondaryExposures = dedupeExposures(st.expos)
			delegate, err := e.evaluateGateInternal(data, rule.ConfigDelegate, user, now, depth+1)
			if err != nil {
				return Result{}, err
			}
			result.JSONValue = delegate.JSONValue
			result.BoolValue = delegate.BoolValue
			result.ConfigDelegate = rule.ConfigDelegate
			result.IsExperimentActive = delegate.IsExperimentActive
			result.IsExperimentGroup = delegate.IsExperimentGroup
			result.GroupName = delegate.GroupName
			result.SecondaryExposures = append(append([]SecondaryExposure{}, result.UndelegatedSecondaryExposures...), delegate.SecondaryExposures...)
		}

		return result, nil
	}

	return Result{
		JSONValue:          spec.DefaultValue,
		BoolValue:          boolOf(spec.DefaultValue),
		RuleID:             "default",
		IDType:             spec.IDType,
		Version:            spec.Version,
		SecondaryExposures: dedupeExposures(st.expos),
		Reason:             ReasonDefault,
	}, nil
}

func boolOf(v interface{ Bool() (bool, bool) }) bool {
	b, _ := v.Bool()
	return b
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
