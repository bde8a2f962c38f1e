package evaluator

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/TimurManjosov/goflagship/internal/statsiguser"
	jsonlogic "github.com/diegoholiveira/jsonlogic/v3"
)

// NewJSONLogicFunc builds the additive json_logic condition_type hook
// (SPEC_FULL.md §4.3) on top of github.com/diegoholiveira/jsonlogic/v3. The
// expression is evaluated against the user's Custom map merged with
// Environment; PrivateAttributes are intentionally excluded from rule
// input, mirroring how they are excluded from logged events.
func NewJSONLogicFunc() JSONLogicFunc {
	return func(expression string, user statsiguser.User) bool {
		if strings.TrimSpace(expression) == "" {
			return false
		}

		data := make(map[string]any, len(user.Custom)+len(user.Environment)+4)
		for k, v := range user.Custom {
			data[k] = v
		}
		for k, v := range user.Environment {
			data[k] = v
		}
		data["userID"] = user.UserID
		data["email"] = user.Email
		data["country"] = user.Country
		data["appVersion"] = user.AppVersion

		dataBytes, err := json.Marshal(data)
		if err != nil {
			return false
		}

		var out bytes.Buffer
		if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(dataBytes), &out); err != nil {
			return false
		}

		return isTruthy(out.Bytes())
	}
}

// isTruthy mirrors the JS-truthiness rules for a JSON Logic
// result: false, null, 0, "", and empty arrays/objects are falsy.
func isTruthy(raw []byte) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
