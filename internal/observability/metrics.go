package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fixed label values used in place of client-supplied names, so request
// input cannot grow the number of series.
const (
	LabelUnregistered = "unregistered"
	LabelOther        = "other"
	LabelNotFound     = "not_found"
)

// Metrics collects application metrics.
type Metrics interface {
	// RecordDispatch records one adapter invocation and its outcome.
	RecordDispatch(provider, outcome string, duration time.Duration)
	// RecordSkip records a provider skipped before dispatch.
	RecordSkip(provider, reason string)
	RecordVote(provider, direction string)
	RecordRequest(route string, status int, duration time.Duration)
}

// PrometheusMetrics reports metrics using Prometheus primitives.
type PrometheusMetrics struct {
	registry         *prometheus.Registry
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	skips            *prometheus.CounterVec
	votes            *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the arena collectors on registry.
func NewPrometheusMetrics(registry *prometheus.Registry) (*PrometheusMetrics, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	m := &PrometheusMetrics{
		registry: registry,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_provider_dispatches_total",
			Help: "Total provider invocations by outcome",
		}, []string{"provider", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_provider_dispatch_duration_seconds",
			Help:    "Provider invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_provider_skips_total",
			Help: "Providers skipped before dispatch by reason",
		}, []string{"provider", "reason"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_votes_total",
			Help: "Votes cast by provider and direction",
		}, []string{"provider", "direction"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	for _, collector := range []prometheus.Collector{
		m.dispatches, m.dispatchDuration, m.skips, m.votes, m.requests, m.requestDuration,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordDispatch(provider, outcome string, duration time.Duration) {
	m.dispatches.WithLabelValues(provider, outcome).Inc()
	m.dispatchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordSkip(provider, reason string) {
	m.skips.WithLabelValues(provider, reason).Inc()
}

func (m *PrometheusMetrics) RecordVote(provider, direction string) {
	m.votes.WithLabelValues(provider, direction).Inc()
}

func (m *PrometheusMetrics) RecordRequest(route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordDispatch(string, string, time.Duration) {}
func (NopMetrics) RecordSkip(string, string)                    {}
func (NopMetrics) RecordVote(string, string)                    {}
func (NopMetrics) RecordRequest(string, int, time.Duration)     {}
