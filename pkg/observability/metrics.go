package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus metrics.
type Metrics struct {
	// Workflow metrics
	RequestsSubmitted *prometheus.CounterVec
	RequestsResolved  *prometheus.CounterVec
	RequestsDenied    *prometheus.CounterVec
	PendingRequests   prometheus.Gauge

	// Visibility metrics
	VisibilityChecks *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers the engine metrics. A nil registry uses
// a fresh private one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		RequestsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubaccess_requests_submitted_total",
				Help: "Join requests created, by resource kind",
			},
			[]string{"kind"},
		),
		RequestsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubaccess_requests_resolved_total",
				Help: "Join requests resolved, by decision",
			},
			[]string{"decision"},
		),
		RequestsDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubaccess_requests_denied_total",
				Help: "Join requests denied at precondition checks, by error kind",
			},
			[]string{"kind"},
		),
		PendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubaccess_pending_requests",
				Help: "Join requests currently awaiting review",
			},
		),
		VisibilityChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubaccess_visibility_checks_total",
				Help: "Visibility checks, by outcome",
			},
			[]string{"allowed"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.RequestsSubmitted,
		m.RequestsResolved,
		m.RequestsDenied,
		m.PendingRequests,
		m.VisibilityChecks,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
