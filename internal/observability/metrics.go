// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Derivation metrics
	DerivationRuns     *prometheus.CounterVec
	DerivationDuration *prometheus.HistogramVec
	DerivedFixtures    prometheus.Gauge
	DerivedColumns     prometheus.Gauge
	ExportedRows       prometheus.Counter

	// Cache metrics
	CacheLookups *prometheus.CounterVec
	CacheWrites  *prometheus.CounterVec

	// Resolution metrics
	FixtureLookups         *prometheus.CounterVec
	MissingFeatureDefaults prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Packaging metrics
	ManifestResourcesHashed prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "football_feature_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		DerivationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "runs_total",
			Help:      "Total number of feature table derivations by status",
		}, []string{"status"}),
		DerivationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "duration_seconds",
			Help:      "Duration of derivation stages",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		DerivedFixtures: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "fixtures",
			Help:      "Number of fixture rows in the loaded feature table",
		}),
		DerivedColumns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "derived_columns",
			Help:      "Number of derived columns in the loaded feature table",
		}),
		ExportedRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "exported_rows_total",
			Help:      "Total number of fixture rows exported to a fixture store",
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of feature cache lookups by result",
		}, []string{"result"}),
		CacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Total number of feature cache writes by status",
		}, []string{"status"}),

		FixtureLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "fixture_lookups_total",
			Help:      "Total number of fixture lookups by method and result",
		}, []string{"method", "result"}),
		MissingFeatureDefaults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "missing_feature_defaults_total",
			Help:      "Total number of required feature values defaulted to zero",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		ManifestResourcesHashed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manifest",
			Name:      "resources_hashed_total",
			Help:      "Total number of artefact files hashed for manifests",
		}),
	}
}

// Handler returns an HTTP handler serving the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordDerivation records one derivation run.
func (m *Metrics) RecordDerivation(status string, fixtures, derivedColumns int) {
	if m == nil {
		return
	}
	m.DerivationRuns.WithLabelValues(status).Inc()
	if status == "success" {
		m.DerivedFixtures.Set(float64(fixtures))
		m.DerivedColumns.Set(float64(derivedColumns))
	}
}

// ObserveStage records the duration of a derivation stage started at start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.DerivationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordExport records rows written to a fixture store.
func (m *Metrics) RecordExport(rows int) {
	if m == nil {
		return
	}
	m.ExportedRows.Add(float64(rows))
}

// RecordCacheLookup records a cache lookup result (CacheHit, CacheMiss, CacheStale, CacheError).
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheWrite records a cache write.
func (m *Metrics) RecordCacheWrite(err error) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(statusOf(err)).Inc()
}

// RecordFixtureLookup records a fixture lookup by method ("teams" or "id").
func (m *Metrics) RecordFixtureLookup(method string, err error) {
	if m == nil {
		return
	}
	result := "found"
	if err != nil {
		result = "not_found"
	}
	m.FixtureLookups.WithLabelValues(method, result).Inc()
}

// RecordMissingDefaults records n required features defaulted to zero.
func (m *Metrics) RecordMissingDefaults(n int) {
	if m == nil || n == 0 {
		return
	}
	m.MissingFeatureDefaults.Add(float64(n))
}

// RecordHTTP records an API request.
func (m *Metrics) RecordHTTP(route, code string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// RecordManifestResource records one hashed artefact.
func (m *Metrics) RecordManifestResource() {
	if m == nil {
		return
	}
	m.ManifestResourcesHashed.Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
