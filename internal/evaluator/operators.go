// operators.go implements the comparison vocabulary condition evaluation
// dispatches to: a regex cache via sync.Map backing an operator-handler-style
// dispatch table, generalized to spec.md §4.3's larger operator set (string
// family, version family via per-segment zero-extended numeric compare,
// time-by-UTC-day family, segment membership).
package evaluator

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TimurManjosov/goflagship/internal/dynamicvalue"
)

var regexCache sync.Map // string -> *regexp.Regexp

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// compareEquality compares on the strongest available projection
// (bool -> int -> float -> string), per spec.md §4.3.
func compareEquality(a, b dynamicvalue.Value) bool {
	if av, ok := a.Bool(); ok {
		if bv, ok := b.Bool(); ok {
			return av == bv
		}
	}
	if av, ok := a.Int64(); ok {
		if bv, ok := b.Int64(); ok {
			return av == bv
		}
	}
	if av, ok := a.Float64(); ok {
		if bv, ok := b.Float64(); ok {
			return av == bv
		}
	}
	as, aok := a.String()
	bs, bok := b.String()
	if aok && bok {
		return as == bs
	}
	return a.IsNull && b.IsNull
}

func numeric(v dynamicvalue.Value) (float64, bool) {
	if f, ok := v.Float64(); ok {
		return f, true
	}
	if i, ok := v.Int64(); ok {
		return float64(i), true
	}
	return 0, false
}

func compareNumeric(a, b dynamicvalue.Value, cmp func(x, y float64) bool) bool {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

// stringsOf normalizes a target_value/additional_values slot into a list of
// strings, for the str_*_any/_none family.
func stringsOf(v dynamicvalue.Value) []string {
	if arr, ok := v.Array(); ok {
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			if s, ok := e.String(); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := v.String(); ok {
		return []string{s}
	}
	return nil
}

func strContainsAny(subject string, candidates []string, caseSensitive bool) bool {
	s := subject
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	for _, c := range candidates {
		cc := c
		if !caseSensitive {
			cc = strings.ToLower(cc)
		}
		if strings.Contains(s, cc) {
			return true
		}
	}
	return false
}

func strStartsWithAny(subject string, candidates []string) bool {
	s := strings.ToLower(subject)
	for _, c := range candidates {
		if strings.HasPrefix(s, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func strEndsWithAny(subject string, candidates []string) bool {
	s := strings.ToLower(subject)
	for _, c := range candidates {
		if strings.HasSuffix(s, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func strMatches(subject, pattern string) bool {
	re, err := compileRegex(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(subject)
}

func anyMembership(subject dynamicvalue.Value, candidates []dynamicvalue.Value, caseSensitive bool) bool {
	subStr, subOK := subject.String()
	for _, c := range candidates {
		if caseSensitive {
			if compareEquality(subject, c) {
				return true
			}
			continue
		}
		if cs, ok := c.String(); ok && subOK {
			if strings.EqualFold(subStr, cs) {
				return true
			}
			continue
		}
		if compareEquality(subject, c) {
			return true
		}
	}
	return false
}

// compareVersion compares two dotted version strings segment by segment,
// numerically, zero-extending the shorter one so "1.2" == "1.2.0" and
// "1.2.3.4" compares its fourth segment rather than being truncated to a
// 3-part semver (spec.md §4.3: "compare by dotted segments, numerically
// per segment, shorter is treated as zero-extended"). Masterminds/semver
// can't express this directly — strict semver caps at major.minor.patch —
// so segments are parsed and compared by hand.
func compareVersion(a, b string) (int, bool) {
	av, aok := versionSegments(a)
	bv, bok := versionSegments(b)
	if !aok || !bok {
		return 0, false
	}

	n := len(av)
	if len(bv) > n {
		n = len(bv)
	}
	for i := 0; i < n; i++ {
		var x, y int64
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			if x < y {
				return -1, true
			}
			return 1, true
		}
	}
	return 0, true
}

// versionSegments splits a dotted version string into its numeric
// components, discarding a leading "v" and any pre-release/build suffix
// starting at "-" or "+".
func versionSegments(v string) ([]int64, bool) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// compareDayUTC compares two epoch-ms timestamps at day granularity in UTC,
// per spec.md's time operator semantics.
func compareDayUTC(a, b int64) int {
	ta := time.UnixMilli(a).UTC().Truncate(24 * time.Hour)
	tb := time.UnixMilli(b).UTC().Truncate(24 * time.Hour)
	switch {
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	default:
		return 0
	}
}
