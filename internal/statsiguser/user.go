// Package statsiguser defines the immutable caller-identity record passed
// into every evaluation. Grounded on original_source's statsig_user.rs /
// statsig_user_builder.rs and the evaluation.Context /
// targeting.UserContext shapes, generalized to the full field set.
package statsiguser

import "github.com/TimurManjosov/goflagship/internal/dynamicvalue"

// User is read-only once constructed; nothing in the evaluator or event
// logger mutates it.
type User struct {
	UserID    string
	CustomIDs map[string]string

	Email      string
	IP         string
	UserAgent  string
	Country    string
	Locale     string
	AppVersion string

	Custom            map[string]any
	PrivateAttributes map[string]any

	Environment map[string]string
}

// New builds a User from a user id and zero-valued optional fields.
func New(userID string) User {
	return User{UserID: userID}
}

// UnitID resolves the identity value used for bucketing for the given
// id_type ("userID", "stableID", or a key in CustomIDs).
func (u User) UnitID(idType string) (string, bool) {
	if idType == "" || equalFoldASCII(idType, "userid") {
		if u.UserID == "" {
			return "", false
		}
		return u.UserID, true
	}
	if v, ok := u.CustomIDs[idType]; ok && v != "" {
		return v, true
	}
	// Case-insensitive fallback over custom ids, since id_type casing is
	// caller-supplied and not normalized upstream.
	for k, v := range u.CustomIDs {
		if equalFoldASCII(k, idType) && v != "" {
			return v, true
		}
	}
	return "", false
}

// HasIdentity reports whether the user carries any identity at all.
func (u User) HasIdentity() bool {
	if u.UserID != "" {
		return true
	}
	return len(u.CustomIDs) > 0
}

// Field resolves a canonical user attribute by name, lower-casing well-known
// keys the way the user_field condition requires
// (userid/email/ip/useragent/country/locale/appversion), falling back to the
// Custom map.
func (u User) Field(name string) (dynamicvalue.Value, bool) {
	switch toLowerASCII(name) {
	case "userid", "user_id":
		if u.UserID == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.UserID), true
	case "email":
		if u.Email == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.Email), true
	case "ip":
		if u.IP == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.IP), true
	case "useragent", "user_agent":
		if u.UserAgent == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.UserAgent), true
	case "country":
		if u.Country == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.Country), true
	case "locale":
		if u.Locale == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.Locale), true
	case "appversion", "app_version":
		if u.AppVersion == "" {
			return dynamicvalue.Value{}, false
		}
		return dynamicvalue.FromJSON(u.AppVersion), true
	}
	if v, ok := u.Custom[name]; ok {
		return dynamicvalue.FromJSON(v), true
	}
	if v, ok := u.PrivateAttributes[name]; ok {
		return dynamicvalue.FromJSON(v), true
	}
	return dynamicvalue.Value{}, false
}

// EnvironmentField resolves from the user's per-request Environment map.
func (u User) EnvironmentField(name string) (dynamicvalue.Value, bool) {
	v, ok := u.Environment[name]
	if !ok {
		return dynamicvalue.Value{}, false
	}
	return dynamicvalue.FromJSON(v), true
}

// Loggable is the shape of a User safe to attach to an exposure event:
// PrivateAttributes is always stripped.
type Loggable struct {
	UserID     string            `json:"userID,omitempty"`
	CustomIDs  map[string]string `json:"customIDs,omitempty"`
	Email      string            `json:"email,omitempty"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"userAgent,omitempty"`
	Country    string            `json:"country,omitempty"`
	Locale     string            `json:"locale,omitempty"`
	AppVersion string            `json:"appVersion,omitempty"`
	Custom     map[string]any    `json:"custom,omitempty"`
}

// ForLogging returns the representation of u safe to embed in a logged
// event: private_attributes never leave the process.
func (u User) ForLogging() Loggable {
	return Loggable{
		UserID:     u.UserID,
		CustomIDs:  u.CustomIDs,
		Email:      u.Email,
		IP:         u.IP,
		UserAgent:  u.UserAgent,
		Country:    u.Country,
		Locale:     u.Locale,
		AppVersion: u.AppVersion,
		Custom:     u.Custom,
	}
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func equalFoldASCII(a, b string) bool {
	return toLowerASCII(a) == toLowerASCII(b)
}
