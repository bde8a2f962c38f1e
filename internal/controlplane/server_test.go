package controlplane

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/goflagship/internal/specs"
)

type fakeSnapshot struct{ data specs.Data }

func (f fakeSnapshot) Load() specs.Data { return f.data }

func TestHealthzIsUngated(t *testing.T) {
	gate, _ := NewTokenGate("")
	srv := New(fakeSnapshot{specs.Empty()}, gate, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDebugSnapshotRequiresToken(t *testing.T) {
	gate, err := NewTokenGate("secret-token")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fakeSnapshot{specs.Empty()}, gate, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/snapshot", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/debug/snapshot", nil)
	req2.Header.Set("Authorization", "Bearer secret-token")
	rec2 := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 with the correct token, got %d", rec2.Code)
	}
}
