package evaluator

import "testing"

func TestCompareVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", 0},
		{"1.2.3.4", "1.2.3.4", 0},
		{"1.2.3.4", "1.2.3.5", -1},
		{"1.2.3.5", "1.2.3.4", 1},
		{"1.2.3.0", "1.2.3", 0},
		{"2.0", "1.9.9.9", 1},
		{"v1.2.3", "1.2.3", 0},
	}
	for _, tt := range tests {
		got, ok := compareVersion(tt.a, tt.b)
		if !ok {
			t.Errorf("compareVersion(%q, %q): not comparable", tt.a, tt.b)
			continue
		}
		if got != tt.want {
			t.Errorf("compareVersion(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareVersionRejectsNonNumeric(t *testing.T) {
	if _, ok := compareVersion("1.2.x", "1.2.3"); ok {
		t.Error("expected a non-numeric segment to be incomparable")
	}
}
