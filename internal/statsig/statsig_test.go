package statsig

import (
	"testing"
	"time"

	"github.com/TimurManjosov/goflagship/internal/config"
	"github.com/TimurManjosov/goflagship/internal/dynamicvalue"
	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/internal/specs"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
)

func testOptions() *config.Options {
	return &config.Options{
		SDKKey:                               "secret-key",
		LogEventURL:                           "https://example.invalid/v1/log_event",
		SpecsURL:                              "https://example.invalid/v2/download_config_specs",
		IDListsURL:                            "https://example.invalid/v1",
		EventLoggingMaxQueueSize:              10_000,
		EventLoggingMaxPendingBatchQueueSize:  60,
		EventLoggingFlushInterval:             time.Minute,
		DisableNetwork:                        true,
	}
}

func seedGate(s *Statsig, name string, enabled bool, passPercentage float64) {
	data := specs.Empty()
	data.Time = 1
	data.FeatureGates[name] = specs.Spec{
		Name:    name,
		Entity:  specs.EntityFeatureGate,
		Enabled: enabled,
		Rules: []specs.Rule{{
			Name:           "rule1",
			ID:             "rule_1",
			Salt:           "salt",
			PassPercentage: passPercentage,
			ReturnValue:    dynamicvalue.FromJSON(true),
			IDType:         "userID",
			ConditionIDs:   []string{"public"},
		}},
	}
	data.ConditionMap["public"] = specs.Condition{Type: "public"}
	s.Store().ApplyUpdate(data, specs.SourceBootstrap, true)
}

func TestCheckGatePassesAtFullRollout(t *testing.T) {
	s, err := New(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.logger.Shutdown(time.Second)

	seedGate(s, "test_public", true, 100)

	if !s.CheckGate(statsiguser.New("a_user"), "test_public") {
		t.Error("expected test_public to pass at 100% rollout")
	}
}

func TestCheckGateUnrecognizedGateFailsClosed(t *testing.T) {
	s, err := New(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.logger.Shutdown(time.Second)

	if s.CheckGate(statsiguser.New("a_user"), "does_not_exist") {
		t.Error("expected an unrecognized gate to evaluate false")
	}
}

func TestGetLayerResolvesParameter(t *testing.T) {
	s, err := New(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.logger.Shutdown(time.Second)

	data := specs.Empty()
	data.Time = 1
	data.LayerConfigs["test_layer"] = specs.Spec{
		Name:    "test_layer",
		Entity:  specs.EntityLayer,
		Enabled: true,
		Rules: []specs.Rule{{
			Name:           "rule1",
			ID:             "rule_1",
			Salt:           "salt",
			PassPercentage: 100,
			ReturnValue:    dynamicvalue.FromJSON(map[string]any{"color": "blue"}),
			IDType:         "userID",
			ConditionIDs:   []string{"public"},
		}},
	}
	data.ConditionMap["public"] = specs.Condition{Type: "public"}
	s.Store().ApplyUpdate(data, specs.SourceBootstrap, true)

	layer := s.GetLayer(statsiguser.New("a_user"), "test_layer")
	v, ok := layer.Get("color")
	if !ok {
		t.Fatal("expected color parameter to resolve")
	}
	if str, _ := v.String(); str != "blue" {
		t.Errorf("color = %q, want blue", str)
	}
}

func TestCheckGateEvaluatesJSONLogicCondition(t *testing.T) {
	s, err := New(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.logger.Shutdown(time.Second)

	data := specs.Empty()
	data.Time = 1
	data.FeatureGates["test_json_logic"] = specs.Spec{
		Name:    "test_json_logic",
		Entity:  specs.EntityFeatureGate,
		Enabled: true,
		Rules: []specs.Rule{{
			Name:           "rule1",
			ID:             "rule_1",
			Salt:           "salt",
			PassPercentage: 100,
			ReturnValue:    dynamicvalue.FromJSON(true),
			IDType:         "userID",
			ConditionIDs:   []string{"is_us"},
		}},
	}
	data.ConditionMap["is_us"] = specs.Condition{
		Type:        "json_logic",
		TargetValue: dynamicvalue.FromJSON(`{"==": [{"var": "country"}, "US"]}`),
	}
	s.Store().ApplyUpdate(data, specs.SourceBootstrap, true)

	us := statsiguser.User{UserID: "a_user", Country: "US"}
	if !s.CheckGate(us, "test_json_logic") {
		t.Error("expected a US user to pass the json_logic country condition")
	}

	ca := statsiguser.User{UserID: "b_user", Country: "CA"}
	if s.CheckGate(ca, "test_json_logic") {
		t.Error("expected a non-US user to fail the json_logic country condition")
	}
}

func TestGetClientInitializeResponseExcludesHoldoutsSegmentsAndUnscopedApps(t *testing.T) {
	s, err := New(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.logger.Shutdown(time.Second)

	data := specs.Empty()
	data.Time = 1
	data.SdkKeysToAppIDs = map[string]string{"secret-key": "app_1"}
	data.FeatureGates["visible_gate"] = specs.Spec{
		Name:    "visible_gate",
		Entity:  specs.EntityFeatureGate,
		Enabled: true,
	}
	data.FeatureGates["a_holdout"] = specs.Spec{
		Name:    "a_holdout",
		Entity:  specs.EntityHoldout,
		Enabled: true,
	}
	data.FeatureGates["a_segment"] = specs.Spec{
		Name:    "a_segment",
		Entity:  specs.EntitySegment,
		Enabled: true,
	}
	data.FeatureGates["other_app_only"] = specs.Spec{
		Name:         "other_app_only",
		Entity:       specs.EntityFeatureGate,
		Enabled:      true,
		TargetAppIDs: []string{"app_2"},
	}
	data.FeatureGates["this_app_only"] = specs.Spec{
		Name:         "this_app_only",
		Entity:       specs.EntityFeatureGate,
		Enabled:      true,
		TargetAppIDs: []string{"app_1", "app_2"},
	}
	s.Store().ApplyUpdate(data, specs.SourceBootstrap, true)

	resp := s.GetClientInitializeResponse(statsiguser.New("a_user"))

	if _, ok := resp.FeatureGates["visible_gate"]; !ok {
		t.Error("expected visible_gate in the client-init response")
	}
	if _, ok := resp.FeatureGates["a_holdout"]; ok {
		t.Error("expected holdout entities to be excluded from the client-init response")
	}
	if _, ok := resp.FeatureGates["a_segment"]; ok {
		t.Error("expected segment entities to be excluded from the client-init response")
	}
	if _, ok := resp.FeatureGates["other_app_only"]; ok {
		t.Error("expected a spec scoped to a different app id to be excluded")
	}
	if _, ok := resp.FeatureGates["this_app_only"]; !ok {
		t.Error("expected a spec scoped to include this app id to be included")
	}
}

type fakeOverride struct{ value bool }

func (f fakeOverride) Override(specName string, user statsiguser.User) (evaluator.Result, bool) {
	return evaluator.Result{BoolValue: f.value, RuleID: "override", Reason: evaluator.ReasonDefault}, true
}

func TestOverrideAdapterShortCircuitsEvaluation(t *testing.T) {
	s, err := New(testOptions(), WithOverrideAdapter(fakeOverride{value: true}))
	if err != nil {
		t.Fatal(err)
	}
	defer s.logger.Shutdown(time.Second)

	seedGate(s, "test_public", true, 0)

	if !s.CheckGate(statsiguser.New("a_user"), "test_public") {
		t.Error("expected the override adapter's value to win even though pass_percentage is 0")
	}
}
