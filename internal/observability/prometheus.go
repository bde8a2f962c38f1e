// Package observability wraps the facade's init/sync/evaluation counters
// and gauges for an operator's metrics scrape, per spec.md §6's
// ObservabilityClient plug-in point, using prometheus/client_golang's
// CounterVec/HistogramVec/Gauge construction idiom.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Client is the plug-in surface a Statsig facade reports into. Implementors
// may forward to Datadog, StatsD, or any other backend; the default
// PrometheusClient below is the one wired by the facade unless the caller
// supplies their own.
type Client interface {
	Increment(name string, labels map[string]string)
	Gauge(name string, value float64, labels map[string]string)
	Distribution(name string, value float64, labels map[string]string)
}

// PrometheusClient is the default Client, registering its own metric
// family per distinct name on first use.
type PrometheusClient struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	registerer prometheus.Registerer
}

func NewPrometheusClient(reg prometheus.Registerer) *PrometheusClient {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusClient{
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		registerer: reg,
	}
}

func (c *PrometheusClient) Increment(name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, values := splitLabels(labels)
	cv, ok := c.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statsig_" + name,
			Help: "statsig SDK counter: " + name,
		}, keys)
		c.registerer.MustRegister(cv)
		c.counters[name] = cv
	}
	cv.WithLabelValues(values...).Inc()
}

func (c *PrometheusClient) Gauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, values := splitLabels(labels)
	gv, ok := c.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statsig_" + name,
			Help: "statsig SDK gauge: " + name,
		}, keys)
		c.registerer.MustRegister(gv)
		c.gauges[name] = gv
	}
	gv.WithLabelValues(values...).Set(value)
}

func (c *PrometheusClient) Distribution(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, values := splitLabels(labels)
	hv, ok := c.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statsig_" + name,
			Help:    "statsig SDK distribution: " + name,
			Buckets: prometheus.DefBuckets,
		}, keys)
		c.registerer.MustRegister(hv)
		c.histograms[name] = hv
	}
	hv.WithLabelValues(values...).Observe(value)
}

func splitLabels(labels map[string]string) ([]string, []string) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = labels[k]
	}
	return keys, values
}

// Timer returns a func() that records elapsed time as a distribution when
// called; a small convenience for timing a network round trip or sync
// pass.
func Timer(c Client, name string, labels map[string]string) func() {
	start := time.Now()
	return func() {
		c.Distribution(name, time.Since(start).Seconds(), labels)
	}
}
