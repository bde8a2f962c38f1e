package evaluator

import (
	"testing"

	"github.com/TimurManjosov/goflagship/internal/dynamicvalue"
	"github.com/TimurManjosov/goflagship/internal/specs"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
)

type fakeStore struct{ data specs.Data }

func (f fakeStore) Load() specs.Data { return f.data }

func publicGate(name string, passPercentage float64) specs.Data {
	d := specs.Empty()
	d.FeatureGates[name] = specs.Spec{
		Name:    name,
		Type:    specs.EntityFeatureGate,
		Entity:  specs.EntityFeatureGate,
		Salt:    "S",
		IDType:  "userID",
		Enabled: true,
		Rules: []specs.Rule{
			{
				Name:           "rule1",
				ID:             "rule_id_1",
				Salt:           "R",
				PassPercentage: passPercentage,
				ReturnValue:    dynamicvalue.FromJSON(true),
				ConditionIDs:   []string{"public-cond"},
			},
		},
	}
	d.ConditionMap["public-cond"] = specs.Condition{Type: "public"}
	return d
}

func TestSimpleGatePass(t *testing.T) {
	d := publicGate("test_public", 100)
	e := New(fakeStore{d}, nil, nil)

	res := e.Evaluate(statsiguser.New("a_user"), "test_public")
	if !res.BoolValue {
		t.Fatalf("expected gate to pass, got reason=%v rule=%q", res.Reason, res.RuleID)
	}
	if res.RuleID != "rule_id_1" {
		t.Errorf("RuleID = %q, want rule_id_1", res.RuleID)
	}
}

func TestUnrecognizedSpec(t *testing.T) {
	d := specs.Empty()
	e := New(fakeStore{d}, nil, nil)
	res := e.Evaluate(statsiguser.New("u"), "missing")
	if res.Reason != ReasonUnrecognized {
		t.Errorf("Reason = %v, want Unrecognized", res.Reason)
	}
}

func TestDisabledSpecReturnsDefault(t *testing.T) {
	d := specs.Empty()
	d.FeatureGates["g"] = specs.Spec{Name: "g", Enabled: false, DefaultValue: dynamicvalue.FromJSON(false)}
	e := New(fakeStore{d}, nil, nil)
	res := e.Evaluate(statsiguser.New("u"), "g")
	if res.Reason != ReasonDisabled || res.RuleID != "disabled" {
		t.Errorf("got reason=%v ruleID=%q", res.Reason, res.RuleID)
	}
}

func TestNoRuleMatchesFallsThroughToDefault(t *testing.T) {
	d := specs.Empty()
	d.ConditionMap["never"] = specs.Condition{Type: "user_field", Field: "email", Operator: "eq", TargetValue: dynamicvalue.FromJSON("nope@x.com")}
	d.FeatureGates["g"] = specs.Spec{
		Name:         "g",
		Enabled:      true,
		DefaultValue: dynamicvalue.FromJSON(false),
		Rules: []specs.Rule{
			{ID: "r1", ConditionIDs: []string{"never"}, PassPercentage: 100, ReturnValue: dynamicvalue.FromJSON(true)},
		},
	}
	e := New(fakeStore{d}, nil, nil)
	res := e.Evaluate(statsiguser.New("u"), "g")
	if res.Reason != ReasonDefault || res.RuleID != "default" {
		t.Errorf("got reason=%v ruleID=%q", res.Reason, res.RuleID)
	}
}

func TestEmptyUnitIDNeverPassesPercentage(t *testing.T) {
	d := publicGate("g", 100)
	e := New(fakeStore{d}, nil, nil)
	res := e.Evaluate(statsiguser.New(""), "g")
	if res.BoolValue {
		t.Error("a user with no unit id must never pass a percentage gate")
	}
}

func TestPassGateRecordsSecondaryExposure(t *testing.T) {
	d := publicGate("base_gate", 100)
	d.ConditionMap["pg"] = specs.Condition{Type: "pass_gate", TargetValue: dynamicvalue.FromJSON("base_gate")}
	d.FeatureGates["outer_gate"] = specs.Spec{
		Name:    "outer_gate",
		Enabled: true,
		Rules: []specs.Rule{
			{ID: "outer_rule", ConditionIDs: []string{"pg"}, PassPercentage: 100, ReturnValue: dynamicvalue.FromJSON(true)},
		},
	}
	e := New(fakeStore{d}, nil, nil)
	res := e.Evaluate(statsiguser.New("u"), "outer_gate")
	if !res.BoolValue {
		t.Fatal("expected outer_gate to pass")
	}
	if len(res.SecondaryExposures) != 1 || res.SecondaryExposures[0].Gate != "base_gate" {
		t.Errorf("SecondaryExposures = %+v", res.SecondaryExposures)
	}
}

func TestStackOverflowOnCyclicGates(t *testing.T) {
	d := specs.Empty()
	d.ConditionMap["pg"] = specs.Condition{Type: "pass_gate", TargetValue: dynamicvalue.FromJSON("cyclic")}
	d.FeatureGates["cyclic"] = specs.Spec{
		Name:    "cyclic",
		Enabled: true,
		Rules: []specs.Rule{
			{ID: "r", ConditionIDs: []string{"pg"}, PassPercentage: 100, ReturnValue: dynamicvalue.FromJSON(true)},
		},
	}
	e := New(fakeStore{d}, nil, nil)
	res := e.Evaluate(statsiguser.New("u"), "cyclic")
	if res.Reason != ReasonError {
		t.Errorf("expected ReasonError on cyclic recursion, got %v", res.Reason)
	}
}
