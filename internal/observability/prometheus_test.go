package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestIncrementRegistersOncePerName(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusClient(reg)

	c.Increment("gate_evaluations", map[string]string{"result": "pass"})
	c.Increment("gate_evaluations", map[string]string{"result": "fail"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 1 {
		t.Fatalf("expected exactly one counter family to be registered, got %d", len(families))
	}
}

func TestGaugeAndDistributionDoNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusClient(reg)
	c.Gauge("queue_depth", 42, nil)
	c.Distribution("sync_latency_seconds", 0.05, map[string]string{"op": "download"})

	stop := Timer(c, "sync_latency_seconds", map[string]string{"op": "download"})
	stop()
}
