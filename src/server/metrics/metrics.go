// Package metrics exposes Prometheus instrumentation for the language server
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shader_lsp"

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
)

// MethodOther labels requests for methods outside the extension catalog, so
// arbitrary client method names cannot grow the label set.
const MethodOther = "other"

// Metrics holds the server collectors. Each instance owns its registry so
// several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	OutboundRequestsTotal *prometheus.CounterVec
	OpenDocuments         prometheus.Gauge
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the server",
		},
		[]string{"method", "outcome"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.OutboundRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Requests sent by the server to the client",
		},
		[]string{"method", "outcome"},
	)

	m.OpenDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_documents",
			Help:      "Documents currently open",
		},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.OutboundRequestsTotal,
		m.OpenDocuments,
	)
	return m
}

// ObserveRequest records one handled request
func (m *Metrics) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveOutbound records one request sent to the client
func (m *Metrics) ObserveOutbound(method, outcome string) {
	if m == nil {
		return
	}
	m.OutboundRequestsTotal.WithLabelValues(method, outcome).Inc()
}

// SetOpenDocuments updates the open document gauge
func (m *Metrics) SetOpenDocuments(n int) {
	if m == nil {
		return
	}
	m.OpenDocuments.Set(float64(n))
}

// Registry returns the registry backing m
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for m
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
