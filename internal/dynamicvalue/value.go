// Package dynamicvalue implements the polymorphic value type used throughout
// the evaluator and spec store: a JSON value with its common projections
// (bool, int64, float64, timestamp, string, array, object) parsed eagerly so
// operator handlers never branch on the underlying JSON kind.
package dynamicvalue

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Value is a tagged union over the JSON type system plus a lazily-lowercased
// string projection and a stable hash, mirroring the shape described in
// original_source's dynamic_value.rs.
type Value struct {
	IsNull bool

	hasBool  bool
	boolV    bool
	hasInt   bool
	intV     int64
	hasFloat bool
	floatV   float64
	hasTime  bool
	timeV    int64 // epoch ms

	hasString bool
	stringV   string
	lowerOnce bool
	lowerV    string

	hasArray bool
	arrayV   []Value

	hasObject bool
	objectV   map[string]Value

	raw  json.RawMessage
	hash uint64
}

// Null is the distinguished null value.
var Null = Value{IsNull: true}

// FromJSON builds a Value from an already-decoded any (as produced by
// encoding/json.Unmarshal into interface{}).
func FromJSON(v any) Value {
	raw, _ := json.Marshal(v)
	return fromAny(v, raw)
}

// FromRawJSON parses a raw JSON document into a Value.
func FromRawJSON(raw []byte) (Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Value{}, err
	}
	return fromAny(v, json.RawMessage(raw)), nil
}

func fromAny(v any, raw json.RawMessage) Value {
	canon := canonicalize(v)
	h := xxhash.Sum64(canon)

	switch t := v.(type) {
	case nil:
		return Value{IsNull: true, raw: raw, hash: h}

	case bool:
		return Value{
			hasBool: true, boolV: t,
			hasString: true, stringV: strconv.FormatBool(t),
			raw: raw, hash: h,
		}

	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		val := Value{
			hasFloat: true, floatV: t,
			hasString: true, stringV: s,
			raw: raw, hash: h,
		}
		if t == float64(int64(t)) {
			val.hasInt = true
			val.intV = int64(t)
		}
		if ts, ok := tryParseTimestamp(s); ok {
			val.hasTime = true
			val.timeV = ts
		}
		return val

	case string:
		val := Value{
			hasString: true, stringV: t,
			raw: raw, hash: h,
		}
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			val.hasInt = true
			val.intV = i
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			val.hasFloat = true
			val.floatV = f
		}
		if ts, ok := tryParseTimestamp(t); ok {
			val.hasTime = true
			val.timeV = ts
		}
		return val

	case []any:
		arr := make([]Value, 0, len(t))
		for _, e := range t {
			er, _ := json.Marshal(e)
			arr = append(arr, fromAny(e, er))
		}
		sv, _ := json.Marshal(t)
		return Value{
			hasArray: true, arrayV: arr,
			hasString: true, stringV: string(sv),
			raw: raw, hash: h,
		}

	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			er, _ := json.Marshal(e)
			obj[k] = fromAny(e, er)
		}
		return Value{hasObject: true, objectV: obj, raw: raw, hash: h}

	default:
		return Value{raw: raw, hash: h}
	}
}

// tryParseTimestamp mirrors dynamic_value.rs's try_parse_timestamp: integer
// first, then RFC3339, then the bare "YYYY-MM-DD HH:MM:SS" form.
func tryParseTimestamp(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC().UnixMilli(), true
	}
	return 0, false
}

// canonicalize produces a stable byte encoding for hashing: maps have their
// keys sorted so equal values hash identically regardless of decode order.
func canonicalize(v any) []byte {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				b = append(b, ',')
			}
			kb, _ := json.Marshal(k)
			b = append(b, kb...)
			b = append(b, ':')
			b = append(b, canonicalize(t[k])...)
		}
		return append(b, '}')
	case []any:
		b := []byte{'['}
		for i, e := range t {
			if i > 0 {
				b = append(b, ',')
			}
			b = append(b, canonicalize(e)...)
		}
		return append(b, ']')
	default:
		b, _ := json.Marshal(t)
		return b
	}
}

// Bool returns the boolean projection.
func (v Value) Bool() (bool, bool) { return v.boolV, v.hasBool }

// Int64 returns the int64 projection.
func (v Value) Int64() (int64, bool) { return v.intV, v.hasInt }

// Float64 returns the float64 projection.
func (v Value) Float64() (float64, bool) { return v.floatV, v.hasFloat }

// TimestampMS returns the epoch-millisecond projection.
func (v Value) TimestampMS() (int64, bool) { return v.timeV, v.hasTime }

// String returns the string projection.
func (v Value) String() (string, bool) { return v.stringV, v.hasString }

// LowerString returns a lazily-computed lowercase string projection, used by
// case-insensitive operators so they never re-lower the same value twice.
func (v *Value) LowerString() (string, bool) {
	if !v.hasString {
		return "", false
	}
	if !v.lowerOnce {
		v.lowerV = toLower(v.stringV)
		v.lowerOnce = true
	}
	return v.lowerV, true
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Array returns the array projection.
func (v Value) Array() ([]Value, bool) { return v.arrayV, v.hasArray }

// Object returns the object projection.
func (v Value) Object() (map[string]Value, bool) { return v.objectV, v.hasObject }

// Hash returns the stable 64-bit hash of the canonical JSON encoding.
func (v Value) Hash() uint64 { return v.hash }

// Equal compares the typed projections only, ignoring raw JSON/hash, per
// dynamic_value.rs's PartialEq.
func (v Value) Equal(o Value) bool {
	if v.IsNull != o.IsNull {
		return false
	}
	if v.hasBool != o.hasBool || (v.hasBool && v.boolV != o.boolV) {
		return false
	}
	if v.hasInt != o.hasInt || (v.hasInt && v.intV != o.intV) {
		return false
	}
	if v.hasFloat != o.hasFloat || (v.hasFloat && v.floatV != o.floatV) {
		return false
	}
	if v.hasString != o.hasString || (v.hasString && v.stringV != o.stringV) {
		return false
	}
	if v.hasTime != o.hasTime || (v.hasTime && v.timeV != o.timeV) {
		return false
	}
	if v.hasArray != o.hasArray || len(v.arrayV) != len(o.arrayV) {
		return false
	}
	for i := range v.arrayV {
		if !v.arrayV[i].Equal(o.arrayV[i]) {
			return false
		}
	}
	if v.hasObject != o.hasObject || len(v.objectV) != len(o.objectV) {
		return false
	}
	for k, ev := range v.objectV {
		if ov, ok := o.objectV[k]; !ok || !ev.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON passes through to the original raw encoding.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw != nil {
		return v.raw, nil
	}
	if v.IsNull {
		return []byte("null"), nil
	}
	return json.Marshal(nil)
}

// UnmarshalJSON decodes into the full set of projections.
func (v *Value) UnmarshalJSON(data []byte) error {
	var a any
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = fromAny(a, json.RawMessage(data))
	return nil
}
