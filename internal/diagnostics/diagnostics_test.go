package diagnostics

import "testing"

type captureSink struct {
	events []EnqueueableEvent
}

func (c *captureSink) Enqueue(e EnqueueableEvent) { c.events = append(c.events, e) }

func TestInitializeContextAlwaysSampled(t *testing.T) {
	sink := &captureSink{}
	d := New(sink)
	d.AddMarker(ContextInitialize, NewMarker(KeyInitialize, ActionStart, ProcessStep))
	d.AddMarker(ContextInitialize, NewMarker(KeyInitialize, ActionEnd, ProcessStep).WithSuccess(true))

	d.Flush(ContextInitialize, KeyInitialize)

	if len(sink.events) != 1 {
		t.Fatalf("expected the default 10000/10000 initialize rate to always sample, got %d events", len(sink.events))
	}
}

func TestFlushClearsMarkersRegardlessOfSampling(t *testing.T) {
	sink := &captureSink{}
	d := New(sink)
	d.SetSamplingRates(map[string]float64{"dcs": 0})
	d.AddMarker(ContextConfigSync, NewMarker(KeyDownloadConfigSpecs, ActionStart, NetworkStep))

	d.Flush(ContextConfigSync, KeyDownloadConfigSpecs)
	if len(sink.events) != 0 {
		t.Fatalf("rate 0 should never sample, got %d events", len(sink.events))
	}

	// second flush with nothing buffered should be a no-op, not re-emit.
	d.Flush(ContextConfigSync, KeyDownloadConfigSpecs)
	if len(sink.events) != 0 {
		t.Fatal("markers must be cleared after a flush attempt even when not sampled")
	}
}

func TestSamplingRateIsClampedToRange(t *testing.T) {
	d := New(nil)
	d.SetSamplingRates(map[string]float64{"initialize": 999999, "config_sync": -5})
	if d.rateOrDefault("initialize") != maxSamplingRate {
		t.Errorf("expected clamp to %v, got %v", maxSamplingRate, d.rateOrDefault("initialize"))
	}
	if d.rateOrDefault("config_sync") != 0 {
		t.Errorf("expected clamp to 0, got %v", d.rateOrDefault("config_sync"))
	}
}
