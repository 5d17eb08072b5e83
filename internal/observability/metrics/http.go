package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for the HTTP API.
type HTTPMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	sseActiveStreams prometheus.Gauge
	sseEventsSent    prometheus.Counter
}

// NewHTTPMetrics creates and registers new HTTP handler metrics
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"}, // path is the route pattern, not the raw URL
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blink_http_request_duration_seconds",
				Help:    "Time taken for HTTP requests",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
			},
			[]string{"method", "path"},
		),
		sseActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blink_http_sse_active_streams",
			Help: "Number of open scan event streams",
		}),
		sseEventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blink_http_sse_events_sent_total",
			Help: "Total number of scan events written to streams",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveRequest records a served request.
func (m *HTTPMetrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// StreamOpened tracks an SSE client.
func (m *HTTPMetrics) StreamOpened() { m.sseActiveStreams.Inc() }

// StreamClosed tracks an SSE client going away.
func (m *HTTPMetrics) StreamClosed() { m.sseActiveStreams.Dec() }

// EventSent counts one SSE event.
func (m *HTTPMetrics) EventSent() { m.sseEventsSent.Inc() }

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.sseActiveStreams.Describe(ch)
	m.sseEventsSent.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.sseActiveStreams.Collect(ch)
	m.sseEventsSent.Collect(ch)
}
