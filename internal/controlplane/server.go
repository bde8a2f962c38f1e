// Package controlplane is the optional local operator-facing HTTP surface:
// /healthz, /debug/snapshot, /metrics. This is NOT an evaluation API —
// the SDK is process-embedded, not a service — so it carries no
// evaluate/flags routes, only read-only introspection. Router construction
// (chi middleware stack, cors.Handler, httprate rate limiting) and metrics
// exposition (promhttp) follow this module's existing HTTP-surface idiom.
package controlplane

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimurManjosov/goflagship/internal/specs"
)

// SnapshotSource is the read-only slice of specstore.Store the debug route
// needs.
type SnapshotSource interface {
	Load() specs.Data
}

// Server is the operator-facing control plane; distinct from, and much
// smaller than, the admin CRUD API, since a process-embedded SDK
// has no flag-authoring surface of its own.
type Server struct {
	snapshot SnapshotSource
	gate     *TokenGate
	registry *prometheus.Registry
}

func New(snapshot SnapshotSource, gate *TokenGate, registry *prometheus.Registry) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Server{snapshot: snapshot, gate: gate, registry: registry}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost"},
		AllowedMethods: []string{"GET"},
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Use(httprate.LimitByIP(60, time.Minute))

		r.Get("/healthz", s.handleHealth)
		r.With(s.gate.Require).Get("/debug/snapshot", s.handleDebugSnapshot)
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type debugSnapshotResponse struct {
	LCUT              int64  `json:"lcut"`
	Checksum          string `json:"checksum"`
	FeatureGateCount  int    `json:"featureGateCount"`
	DynamicConfigCount int   `json:"dynamicConfigCount"`
	LayerConfigCount  int    `json:"layerConfigCount"`
}

func (s *Server) handleDebugSnapshot(w http.ResponseWriter, _ *http.Request) {
	data := s.snapshot.Load()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(debugSnapshotResponse{
		LCUT:               data.Time,
		Checksum:           data.Checksum,
		FeatureGateCount:   len(data.FeatureGates),
		DynamicConfigCount: len(data.DynamicConfigs),
		LayerConfigCount:   len(data.LayerConfigs),
	})
}
