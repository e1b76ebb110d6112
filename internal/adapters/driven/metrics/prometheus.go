package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	resolutionsTotal      *prometheus.CounterVec
	discoveryTotal        *prometheus.CounterVec
	stubCacheLookupsTotal *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics
// recorder with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pub_resolver_resolutions_total",
		Help: "Total publication descriptor resolutions",
	}, []string{"outcome"})

	discoveryTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pub_resolver_discovery_total",
		Help: "Total discovery provider calls",
	}, []string{"result"})

	stubCacheLookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pub_resolver_stub_cache_lookups_total",
		Help: "Total stub cache lookups",
	}, []string{"result"})

	reg.MustRegister(
		resolutionsTotal,
		discoveryTotal,
		stubCacheLookupsTotal,
	)

	return &PrometheusMetricsRecorder{
		resolutionsTotal:      resolutionsTotal,
		discoveryTotal:        discoveryTotal,
		stubCacheLookupsTotal: stubCacheLookupsTotal,
	}
}

// RecordResolution records a completed descriptor resolution and its outcome.
func (p *PrometheusMetricsRecorder) RecordResolution(outcome string) {
	p.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordDiscovery records a discovery provider call.
func (p *PrometheusMetricsRecorder) RecordDiscovery(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.discoveryTotal.WithLabelValues(result).Inc()
}

// RecordStubCacheLookup records a stub cache lookup result.
func (p *PrometheusMetricsRecorder) RecordStubCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.stubCacheLookupsTotal.WithLabelValues(result).Inc()
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
