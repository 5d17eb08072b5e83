package metrics

import "github.com/prometheus/client_golang/prometheus"

// LookupMetrics covers catalog plate lookups and reverse geocoding.
type LookupMetrics struct {
	catalogLookups  *prometheus.CounterVec
	detections      *prometheus.CounterVec
	geocodeRequests *prometheus.CounterVec
}

// NewLookupMetrics creates and registers the lookup metrics.
func NewLookupMetrics(registry prometheus.Registerer) (*LookupMetrics, error) {
	m := &LookupMetrics{
		catalogLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blink_catalog_lookups_total",
				Help: "Total number of plate lookups by cache result",
			},
			[]string{"cache"}, // cache: hit, miss
		),
		detections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blink_detections_total",
				Help: "Total number of detections by whether the bus is in the catalog",
			},
			[]string{"mode", "known"},
		),
		geocodeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blink_geocode_requests_total",
				Help: "Total number of reverse geocoding lookups by outcome",
			},
			[]string{"outcome"}, // outcome: cached, ok, error
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveCatalogLookup matches the catalog lookup observer signature.
func (m *LookupMetrics) ObserveCatalogLookup(hit bool) {
	label := LabelMiss
	if hit {
		label = LabelHit
	}
	m.catalogLookups.WithLabelValues(label).Inc()
}

// ObserveDetection counts an enriched detection.
func (m *LookupMetrics) ObserveDetection(mode string, known bool) {
	k := "false"
	if known {
		k = "true"
	}
	m.detections.WithLabelValues(mode, k).Inc()
}

// ObserveGeocode matches the geocode observer signature.
func (m *LookupMetrics) ObserveGeocode(outcome string) {
	m.geocodeRequests.WithLabelValues(outcome).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *LookupMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.catalogLookups.Describe(ch)
	m.detections.Describe(ch)
	m.geocodeRequests.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *LookupMetrics) Collect(ch chan<- prometheus.Metric) {
	m.catalogLookups.Collect(ch)
	m.detections.Collect(ch)
	m.geocodeRequests.Collect(ch)
}
