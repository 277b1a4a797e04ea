package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Credential metrics
	LoginsTotal            *prometheus.CounterVec
	TokenVerificationTotal *prometheus.CounterVec
	AuthorizationDenied    *prometheus.CounterVec

	// Store metrics
	VersionWritesTotal *prometheus.CounterVec

	// Registry metrics
	RegistrySize        prometheus.Gauge
	RegistryResyncTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunt_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hunt_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunt_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenVerificationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunt_token_verifications_total",
				Help: "Bearer token verifications by outcome",
			},
			[]string{"outcome"},
		),
		AuthorizationDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunt_authorization_denied_total",
				Help: "Requests rejected by the role gate",
			},
			[]string{"role"},
		),
		VersionWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunt_version_writes_total",
				Help: "Bitemporal writes by entity, operation and outcome",
			},
			[]string{"entity", "operation", "outcome"},
		),
		RegistrySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hunt_challenge_registry_size",
				Help: "Number of challenges held by the scheduling registry",
			},
		),
		RegistryResyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunt_challenge_registry_resync_total",
				Help: "Registry rebuilds from storage by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.TokenVerificationTotal,
		m.AuthorizationDenied,
		m.VersionWritesTotal,
		m.RegistrySize,
		m.RegistryResyncTotal,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome labels a result for counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
