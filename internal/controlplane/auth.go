package controlplane

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TokenGate gates the debug routes behind a single bcrypt-hashed operator
// token, mirroring the subtle.ConstantTimeCompare bearer-auth
// idiom but hashed at rest instead of compared in plaintext, since the
// token here protects a read-only snapshot of live evaluation state rather
// than a write API.
type TokenGate struct {
	hash []byte
}

// NewTokenGate hashes token once at construction; pass an empty token to
// disable the gate (every request is then rejected, matching "no debug
// surface configured" rather than silently allowing access).
func NewTokenGate(token string) (*TokenGate, error) {
	if token == "" {
		return &TokenGate{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &TokenGate{hash: hash}, nil
}

func (g *TokenGate) enabled() bool { return len(g.hash) > 0 }

// Require wraps next, rejecting requests whose Authorization: Bearer
// token doesn't match.
func (g *TokenGate) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.enabled() {
			http.Error(w, "control plane debug routes are disabled", http.StatusForbidden)
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" || bcrypt.CompareHashAndPassword(g.hash, []byte(got)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}
