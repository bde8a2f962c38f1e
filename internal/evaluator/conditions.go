package evaluator

import (
	"strings"
	"time"

	"github.com/TimurManjosov/goflagship/internal/dynamicvalue"
	"github.com/TimurManjosov/goflagship/internal/hashing"
	"github.com/TimurManjosov/goflagship/internal/specs"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
)

// evalState threads per-evaluation mutable context: the user, recursion
// depth (bounded per spec.md §9's "recursive gate evaluation -> iterative
// with explicit stack bound"), and the secondary exposures accumulated so
// far.
type evalState struct {
	data   *specs.Data
	user   statsiguser.User
	now    time.Time
	depth  int
	expos  []SecondaryExposure
	eval   *Evaluator
}

// evaluateConditions applies logical AND across every condition, always
// collecting secondary exposures regardless of pass/fail, per spec.md
// §4.3's "collect secondary exposures whether or not the condition passes".
func (st *evalState) evaluateConditions(conds []specs.Condition) (bool, error) {
	result := true
	for _, c := range conds {
		ok, err := st.evaluateCondition(c)
		if err != nil {
			return false, err
		}
		if !ok {
			result = false
		}
	}
	return result, nil
}

func (st *evalState) evaluateCondition(c specs.Condition) (bool, error) {
	switch c.Type {
	case "public":
		return true, nil

	case "pass_gate", "fail_gate":
		if st.depth >= maxRecursionDepth {
			return false, ErrStackOverflow
		}
		gateName, _ := c.TargetValue.String()
		sub, err := st.eval.evaluateGateInternal(st.data, gateName, st.user, st.now, st.depth+1)
		if err != nil {
			return false, err
		}
		gv := "false"
		if sub.BoolValue {
			gv = "true"
		}
		st.expos = append(st.expos, SecondaryExposure{Gate: gateName, GateValue: gv, RuleID: sub.RuleID})
		if c.Type == "fail_gate" {
			return !sub.BoolValue, nil
		}
		return sub.BoolValue, nil

	case "multi_pass_gate":
		names := stringsOf(c.TargetValue)
		for _, name := range names {
			if st.depth >= maxRecursionDepth {
				return false, ErrStackOverflow
			}
			sub, err := st.eval.evaluateGateInternal(st.data, name, st.user, st.now, st.depth+1)
			if err != nil {
				return false, err
			}
			gv := "false"
			if sub.BoolValue {
				gv = "true"
			}
			st.expos = append(st.expos, SecondaryExposure{Gate: name, GateValue: gv, RuleID: sub.RuleID})
			if !sub.BoolValue {
				return false, nil
			}
		}
		return true, nil

	case "user_field", "custom_field":
		val, ok := st.user.Field(c.Field)
		return applyOperator(c.Operator, val, ok, c.TargetValue), nil

	case "ip_based":
		val, ok := st.user.Field("ip")
		return applyOperator(c.Operator, val, ok, c.TargetValue), nil

	case "ua_based":
		val, ok := st.user.Field("useragent")
		return applyOperator(c.Operator, val, ok, c.TargetValue), nil

	case "environment_field":
		val, ok := st.user.EnvironmentField(c.Field)
		return applyOperator(c.Operator, val, ok, c.TargetValue), nil

	case "unit_id":
		uid, ok := st.user.UnitID(c.IDType)
		val := dynamicvalue.Value{}
		if ok {
			val = dynamicvalue.FromJSON(uid)
		}
		return applyOperator(c.Operator, val, ok, c.TargetValue), nil

	case "current_time":
		nowMS := st.now.UnixMilli()
		val := dynamicvalue.FromJSON(nowMS)
		return applyOperator(c.Operator, val, true, c.TargetValue), nil

	case "segment", "passes_segment", "fails_segment", "in_segment_list":
		return st.evaluateSegment(c), nil

	case "json_logic":
		if st.eval.jsonLogic != nil {
			expr, _ := c.TargetValue.String()
			return st.eval.jsonLogic(expr, st.user), nil
		}
		return false, nil

	default:
		return false, nil
	}
}

// evaluateSegment hashes the subject (unit id) and checks membership in the
// named id list, per spec.md's in_segment_list operator.
func (st *evalState) evaluateSegment(c specs.Condition) bool {
	idType := c.IDType
	uid, ok := st.user.UnitID(idType)
	if !ok {
		return false
	}
	hashed := hashing.SegmentMember(uid)
	listName, _ := c.TargetValue.String()

	present := false
	if st.eval.idLists != nil {
		present = st.eval.idLists.Contains(listName, hashed)
	}

	negate := c.Type == "fails_segment"
	if negate {
		return !present
	}
	return present
}

// applyOperator dispatches a resolved subject value against an operator and
// target, per spec.md §4.3's operator semantics paragraph. present=false
// means the field was missing: any/none see an explicit null, comparators
// return false.
func applyOperator(operator string, subject dynamicvalue.Value, present bool, target dynamicvalue.Value) bool {
	op := normalizeOp(operator)
	switch op {
	case "eq":
		if !present {
			return false
		}
		return compareEquality(subject, target)
	case "neq":
		if !present {
			return false
		}
		return !compareEquality(subject, target)

	case "any", "none":
		if !present {
			subject = dynamicvalue.Null
		}
		candidates, _ := target.Array()
		match := anyMembership(subject, candidates, false)
		if op == "none" {
			return !match
		}
		return match

	case "any_case_sensitive", "none_case_sensitive":
		if !present {
			subject = dynamicvalue.Null
		}
		candidates, _ := target.Array()
		match := anyMembership(subject, candidates, true)
		if op == "none_case_sensitive" {
			return !match
		}
		return match

	case "gt":
		if !present {
			return false
		}
		return compareNumeric(subject, target, func(a, b float64) bool { return a > b })
	case "gte":
		if !present {
			return false
		}
		return compareNumeric(subject, target, func(a, b float64) bool { return a >= b })
	case "lt":
		if !present {
			return false
		}
		return compareNumeric(subject, target, func(a, b float64) bool { return a < b })
	case "lte":
		if !present {
			return false
		}
		return compareNumeric(subject, target, func(a, b float64) bool { return a <= b })

	case "str_contains_any":
		if !present {
			return false
		}
		s, _ := subject.String()
		return strContainsAny(s, stringsOf(target), false)
	case "str_contains_none":
		if !present {
			return false
		}
		s, _ := subject.String()
		return !strContainsAny(s, stringsOf(target), false)
	case "str_starts_with_any":
		if !present {
			return false
		}
		s, _ := subject.String()
		return strStartsWithAny(s, stringsOf(target))
	case "str_ends_with_any":
		if !present {
			return false
		}
		s, _ := subject.String()
		return strEndsWithAny(s, stringsOf(target))
	case "str_matches":
		if !present {
			return false
		}
		s, _ := subject.String()
		pattern, _ := target.String()
		return strMatches(s, pattern)

	case "version_gt", "version_lt", "version_eq":
		if !present {
			return false
		}
		sv, _ := subject.String()
		tv, _ := target.String()
		cmp, ok := compareVersion(sv, tv)
		if !ok {
			return false
		}
		switch op {
		case "version_gt":
			return cmp > 0
		case "version_lt":
			return cmp < 0
		default:
			return cmp == 0
		}

	case "before", "after", "on", "on_after":
		if !present {
			return false
		}
		st1, ok1 := subject.TimestampMS()
		st2, ok2 := target.TimestampMS()
		if !ok1 || !ok2 {
			return false
		}
		cmp := compareDayUTC(st1, st2)
		switch op {
		case "before":
			return cmp < 0
		case "after":
			return cmp > 0
		case "on":
			return cmp == 0
		default: // on_after
			return cmp >= 0
		}

	default:
		return false
	}
}

func normalizeOp(op string) string {
	return strings.ToLower(strings.TrimSpace(op))
}
