package dynamicvalue

import "testing"

func TestFromJSONProjections(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		wantInt   int64
		wantHasI  bool
		wantFloat float64
		wantHasF  bool
	}{
		{"int-string", "42", 42, true, 42, true},
		{"plain-number", float64(7), 7, true, 7, true},
		{"non-numeric-string", "hello", 0, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromJSON(tt.in)
			i, hasI := v.Int64()
			if hasI != tt.wantHasI || (hasI && i != tt.wantInt) {
				t.Errorf("Int64() = (%d, %v), want (%d, %v)", i, hasI, tt.wantInt, tt.wantHasI)
			}
			f, hasF := v.Float64()
			if hasF != tt.wantHasF || (hasF && f != tt.wantFloat) {
				t.Errorf("Float64() = (%v, %v), want (%v, %v)", f, hasF, tt.wantFloat, tt.wantHasF)
			}
		})
	}
}

func TestTimestampParsing(t *testing.T) {
	v := FromJSON("2024-01-15T10:30:00Z")
	ts, ok := v.TimestampMS()
	if !ok {
		t.Fatal("expected timestamp projection")
	}
	if ts <= 0 {
		t.Errorf("unexpected timestamp value: %d", ts)
	}

	v2 := FromJSON("2024-01-15 10:30:00")
	if _, ok := v2.TimestampMS(); !ok {
		t.Error("expected bare datetime to parse as timestamp")
	}

	v3 := FromJSON("not-a-date")
	if _, ok := v3.TimestampMS(); ok {
		t.Error("did not expect a timestamp projection for a non-date string")
	}
}

func TestHashIgnoresKeyOrder(t *testing.T) {
	a := FromJSON(map[string]any{"a": float64(1), "b": float64(2)})
	b := FromJSON(map[string]any{"b": float64(2), "a": float64(1)})
	if a.Hash() != b.Hash() {
		t.Error("expected canonicalized hash to be order-independent")
	}
}

func TestLowerStringLazy(t *testing.T) {
	v := FromJSON("MixedCase")
	lower, ok := v.LowerString()
	if !ok || lower != "mixedcase" {
		t.Errorf("LowerString() = (%q, %v)", lower, ok)
	}
	// second call should hit the cached path; result must be stable.
	lower2, _ := v.LowerString()
	if lower2 != lower {
		t.Errorf("LowerString() not stable across calls: %q vs %q", lower, lower2)
	}
}

func TestNullIsDistinguishable(t *testing.T) {
	v := FromJSON(nil)
	if !v.IsNull {
		t.Error("expected IsNull for nil input")
	}
	if _, ok := v.String(); ok {
		t.Error("null value should have no string projection")
	}
}
