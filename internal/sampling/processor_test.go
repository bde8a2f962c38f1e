package sampling

import "testing"

func TestFirstExposureAlwaysForceLogged(t *testing.T) {
	p := New()
	rate := uint64(1000)
	d := p.GetDecision(Input{SpecName: "g", RuleID: "r1", Value: "true", UserIDHash: "u1", SamplingMode: ModeOn, RuleSamplingRate: &rate})
	if d.Kind != KindForceSampled || !d.ShouldSendExposure {
		t.Errorf("first exposure of (spec,rule) must force-log, got %+v", d)
	}
}

func TestDuplicateExposureIsDeduped(t *testing.T) {
	p := New()
	in := Input{SpecName: "g", RuleID: "r1", Value: "true", UserIDHash: "u1", SamplingMode: ModeOn}
	p.GetDecision(in) // first seen
	d := p.GetDecision(in)
	if d.Kind != KindDeduped || d.ShouldSendExposure {
		t.Errorf("identical repeat exposure should be deduped, got %+v", d)
	}
}

func TestShadowModeAlwaysSendsButAnnotates(t *testing.T) {
	p := New()
	rate := uint64(2) // essentially guaranteed to sometimes fail the mod check
	// Burn the first-seen slot for (g, r1); the next call uses a distinct
	// value so it is not deduped and the rate-based path actually runs.
	p.GetDecision(Input{SpecName: "g", RuleID: "r1", Value: "v1", UserIDHash: "u1", SamplingMode: ModeShadow})
	d := p.GetDecision(Input{SpecName: "g", RuleID: "r1", Value: "v2", UserIDHash: "u1", SamplingMode: ModeShadow, RuleSamplingRate: &rate})
	if !d.ShouldSendExposure {
		t.Error("shadow mode must always send the exposure regardless of the computed decision")
	}
	if d.Status != StatusLogged && d.Status != StatusDropped {
		t.Errorf("shadow mode should annotate a concrete status, got %q", d.Status)
	}
}

func TestOffModeForceLogsWithNoAnnotation(t *testing.T) {
	p := New()
	d := p.GetDecision(Input{SpecName: "g", RuleID: "r1", Value: "v", UserIDHash: "u1", SamplingMode: ModeOff})
	if !d.ShouldSendExposure || d.Status != StatusNone {
		t.Errorf("off mode should force-log with no annotation, got %+v", d)
	}
}

func TestSpecialCaseRuleUsesSpecialRate(t *testing.T) {
	p := New()
	special := uint64(1)
	// burn first-seen
	p.GetDecision(Input{SpecName: "g", RuleID: "disabled", Value: "v1", UserIDHash: "u1", SamplingMode: ModeOn})
	d := p.GetDecision(Input{SpecName: "g", RuleID: "disabled", Value: "v2", UserIDHash: "u1", SamplingMode: ModeOn, SpecialCaseSamplingRate: &special})
	if d.SamplingRate == nil || *d.SamplingRate != special {
		t.Errorf("expected special-case rate to be used, got %+v", d)
	}
}
