package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdf"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// consolidator, the dashboard, and geocoding.
type Metrics struct {
	// Consolidation metrics.
	ConsolidationRows *prometheus.CounterVec // labels: stage={read,malformed,duplicate,written}

	// Dashboard metrics.
	RecordsLoaded   prometheus.Gauge
	ViewRows        *prometheus.GaugeVec // labels: view={weekly,regions,places}
	UnmatchedPlaces prometheus.Gauge
	DashboardReady  prometheus.Gauge

	// Lookup metrics.
	LookupRequests *prometheus.CounterVec // labels: outcome={match,no_match,no_date,invalid}
	LookupDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ConsolidationRows,
		m.RecordsLoaded,
		m.ViewRows,
		m.UnmatchedPlaces,
		m.DashboardReady,
		m.LookupRequests,
		m.LookupDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ConsolidationRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consolidation_rows_total",
			Help:      "Raw and consolidated rows by consolidation stage.",
		}, []string{"stage"}),
		RecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_loaded",
			Help:      "Consolidated records loaded by the dashboard.",
		}),
		ViewRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_rows",
			Help:      "Rows in each precomputed aggregate view.",
		}, []string{"view"}),
		UnmatchedPlaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_places",
			Help:      "Distinct places of death dropped from the density map for lack of coordinates.",
		}),
		DashboardReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_ready",
			Help:      "1 once the dashboard bundle is loaded, 0 otherwise.",
		}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Same-age lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of a same-age lookup.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
