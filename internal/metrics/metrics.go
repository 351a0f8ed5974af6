// Package metrics holds the Prometheus collectors for the admin console:
// HTTP traffic, guard decisions, backend calls and OTP resends. All methods
// are nil-safe so components can run without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "adminconsole").
	Namespace string

	// Buckets are the histogram buckets for latencies.
	Buckets []float64

	// Registry is where collectors are registered. A fresh registry is used
	// when nil so repeated construction in tests does not panic.
	Registry *prometheus.Registry
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics is the set of collectors shared by middleware and services.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	guardDecisions  *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	otpResends      *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "adminconsole",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		registry: cfg.Registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status code",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"route"}),

		guardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard outcomes by guard kind, state and redirect target",
		}, []string{"guard", "state", "target"}),

		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "backend_calls_total",
			Help:      "Backend API calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend API call latency in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"endpoint"}),

		otpResends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "otp_resends_total",
			Help:      "OTP resend attempts by result (sent, suppressed, failed)",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveGuard records a guard decision.
func (m *Metrics) ObserveGuard(guard, state, target string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(guard, state, target).Inc()
}

// ObserveBackendCall records one backend call and its outcome.
func (m *Metrics) ObserveBackendCall(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(endpoint, outcome).Inc()
	m.backendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveResend records an OTP resend attempt.
func (m *Metrics) ObserveResend(result string) {
	if m == nil {
		return
	}
	m.otpResends.WithLabelValues(result).Inc()
}
