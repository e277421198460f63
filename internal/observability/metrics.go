package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker states as exported by the CircuitBreakerState gauge.
const (
	breakerClosed   = 0
	breakerHalfOpen = 1
	breakerOpen     = 2
)

// Metrics contains all Prometheus metrics for the feed service.
// Metrics are organized by subsystem: upstream API calls, rendered feeds,
// and inbound HTTP traffic. All collectors are registered via promauto
// with the default Prometheus registry.
type Metrics struct {
	// UpstreamRequestsTotal counts successful literature API calls.
	UpstreamRequestsTotal prometheus.Counter

	// UpstreamRequestsFailed counts failed literature API calls, labeled by reason
	// (transport, http_status, circuit_open, decode).
	UpstreamRequestsFailed *prometheus.CounterVec

	// UpstreamRequestDuration observes literature API call duration in seconds.
	UpstreamRequestDuration prometheus.Histogram

	// UpstreamHitsPerResponse observes the number of records per upstream response.
	UpstreamHitsPerResponse prometheus.Histogram

	// FeedsRendered counts RSS documents produced.
	FeedsRendered prometheus.Counter

	// FeedItemsRendered counts items written into RSS documents.
	FeedItemsRendered prometheus.Counter

	// CircuitBreakerState reports the upstream breaker state (0 closed, 1 half-open, 2 open).
	CircuitBreakerState prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Upstream
		UpstreamRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of successful literature API requests",
		}),
		UpstreamRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_failed_total",
			Help:      "Total number of failed literature API requests by reason",
		}, []string{"reason"}),
		UpstreamRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of literature API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		UpstreamHitsPerResponse: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_hits_per_response",
			Help:      "Number of records returned per literature API response",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}),
		CircuitBreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_circuit_breaker_state",
			Help:      "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
		}),

		// Feeds
		FeedsRendered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feeds_rendered_total",
			Help:      "Total number of RSS documents rendered",
		}),
		FeedItemsRendered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_items_rendered_total",
			Help:      "Total number of items written into RSS documents",
		}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method and status",
		}, []string{"method", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// RecordUpstreamRequest records a successful upstream call and its hit count.
func (m *Metrics) RecordUpstreamRequest(durationSeconds float64, hits int) {
	m.UpstreamRequestsTotal.Inc()
	m.UpstreamRequestDuration.Observe(durationSeconds)
	m.UpstreamHitsPerResponse.Observe(float64(hits))
}

// RecordUpstreamFailed records a failed upstream call.
func (m *Metrics) RecordUpstreamFailed(reason string, durationSeconds float64) {
	m.UpstreamRequestsFailed.WithLabelValues(reason).Inc()
	m.UpstreamRequestDuration.Observe(durationSeconds)
}

// RecordFeedRendered records a rendered RSS document.
func (m *Metrics) RecordFeedRendered(items int) {
	m.FeedsRendered.Inc()
	m.FeedItemsRendered.Add(float64(items))
}

// RecordCircuitBreakerState sets the breaker gauge from a state name.
// Unknown names, including "disabled", are reported as closed.
func (m *Metrics) RecordCircuitBreakerState(state string) {
	switch state {
	case "open":
		m.CircuitBreakerState.Set(breakerOpen)
	case "half-open":
		m.CircuitBreakerState.Set(breakerHalfOpen)
	default:
		m.CircuitBreakerState.Set(breakerClosed)
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method string, status int, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}
