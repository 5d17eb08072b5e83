// Package metrics provides custom Prometheus metrics for the BLink scanner and
// its collaborators.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScannerMetrics contains metrics for the recognition pipeline. It satisfies
// the scanner's Recorder interface.
type ScannerMetrics struct {
	framesReceived     prometheus.Counter
	framesDropped      *prometheus.CounterVec
	recognitions       *prometheus.CounterVec
	recognitionLatency *prometheus.HistogramVec
	stableDetections   prometheus.Counter
	captures           *prometheus.CounterVec
}

// NewScannerMetrics creates and registers the scanner metrics.
func NewScannerMetrics(registry prometheus.Registerer) (*ScannerMetrics, error) {
	m := &ScannerMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ScannerMetrics) initMetrics() {
	m.framesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blink_scanner_frames_received_total",
		Help: "Total number of frames submitted to the scanner",
	})

	m.framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blink_scanner_frames_dropped_total",
			Help: "Total number of frames dropped before recognition",
		},
		[]string{"reason"}, // reason: not_scanning, throttled, in_flight, invalid_roi
	)

	m.recognitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blink_scanner_recognitions_total",
			Help: "Total number of recognition requests",
		},
		[]string{"mode", "outcome"}, // mode: continuous, capture; outcome: match, no_match, error
	)

	m.recognitionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blink_scanner_recognition_duration_seconds",
			Help:    "Time taken by the text recognizer",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10), // 10ms to ~5s
		},
		[]string{"mode"},
	)

	m.stableDetections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blink_scanner_stable_detections_total",
		Help: "Total number of plates that reached the confidence threshold",
	})

	m.captures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blink_scanner_captures_total",
			Help: "Total number of capture requests by final status",
		},
		[]string{"status"},
	)
}

// RecordFrame counts a submitted frame. An empty reason means it was accepted.
func (m *ScannerMetrics) RecordFrame(dropReason string) {
	m.framesReceived.Inc()
	if dropReason != "" {
		m.framesDropped.WithLabelValues(dropReason).Inc()
	}
}

// RecordRecognition counts a recognizer call and its latency.
func (m *ScannerMetrics) RecordRecognition(mode, outcome string, elapsed time.Duration) {
	m.recognitions.WithLabelValues(mode, outcome).Inc()
	m.recognitionLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordStable counts a newly stable plate.
func (m *ScannerMetrics) RecordStable() {
	m.stableDetections.Inc()
}

// RecordCapture counts a finished capture.
func (m *ScannerMetrics) RecordCapture(status string) {
	m.captures.WithLabelValues(status).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ScannerMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesReceived.Describe(ch)
	m.framesDropped.Describe(ch)
	m.recognitions.Describe(ch)
	m.recognitionLatency.Describe(ch)
	m.stableDetections.Describe(ch)
	m.captures.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ScannerMetrics) Collect(ch chan<- prometheus.Metric) {
	m.framesReceived.Collect(ch)
	m.framesDropped.Collect(ch)
	m.recognitions.Collect(ch)
	m.recognitionLatency.Collect(ch)
	m.stableDetections.Collect(ch)
	m.captures.Collect(ch)
}
