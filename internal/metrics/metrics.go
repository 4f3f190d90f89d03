// Package metrics holds the Prometheus collectors exported on /metrics.
//
// All methods are safe on a nil *Metrics, so components can be built without
// instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	spotResolutions *prometheus.CounterVec
	spotLatency     *prometheus.HistogramVec
	chainRequests   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// New registers all collectors under the given namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		spotResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spot_resolutions_total",
			Help:      "Spot price resolutions by source (live, fallback, none) and outcome.",
		}, []string{"source", "outcome"}),
		spotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spot_fetch_seconds",
			Help:      "Time spent resolving a spot price, including fallback.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 10},
		}, []string{"source"}),
		chainRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_requests_total",
			Help:      "Option chain HTTP requests by status code.",
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_cache_lookups_total",
			Help:      "Response cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
	reg.MustRegister(m.spotResolutions, m.spotLatency, m.chainRequests, m.cacheLookups)
	return m
}

// ObserveSpot records one spot resolution.
func (m *Metrics) ObserveSpot(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.spotResolutions.WithLabelValues(source, outcome).Inc()
	m.spotLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveChainRequest records the status code of one /option-chain request.
func (m *Metrics) ObserveChainRequest(status string) {
	if m == nil {
		return
	}
	m.chainRequests.WithLabelValues(status).Inc()
}

// ObserveCache records a response cache lookup.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
