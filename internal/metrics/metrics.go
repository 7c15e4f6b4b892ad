package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Ranking
	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranking_duration_seconds",
			Help:    "Duration of a ranking pass in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"}, // "recommend", "alternatives"
	)

	CandidatesReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranking_candidates_returned",
			Help:    "Number of candidates returned per ranking track",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"track"}, // "recommendations", "near_time", "category"
	)

	PlansNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plans_normalized_total",
			Help: "Plans whose brand or category was rewritten to the catalog spelling",
		},
		[]string{"swapped"},
	)

	// Catalog
	CatalogRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_records",
			Help: "Records in the catalog snapshot in service",
		},
		[]string{"kind"},
	)

	CatalogVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_version",
			Help: "Version of the catalog snapshot in service",
		},
	)

	CatalogReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Total number of catalog reload attempts",
		},
		[]string{"outcome"},
	)

	// Narration
	NarrationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "narration_cache_hits_total",
			Help: "Total number of narration cache hits",
		},
	)

	NarrationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "narration_cache_misses_total",
			Help: "Total number of narration cache misses",
		},
	)

	NarrationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narration_failures_total",
			Help: "Total number of narration calls that fell back to plain reasons",
		},
		[]string{"narrator"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRanking records the duration of a ranking pass.
func RecordRanking(operation string, duration time.Duration) {
	RankingDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordPlanNormalized(swapped bool) {
	PlansNormalized.WithLabelValues(strconv.FormatBool(swapped)).Inc()
}

func RecordCandidates(track string, n int) {
	CandidatesReturned.WithLabelValues(track).Observe(float64(n))
}

// RecordCatalogReload records a reload attempt. Counts are only updated on
// success.
func RecordCatalogReload(err error, version uint64, offers, events int) {
	if err != nil {
		CatalogReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	CatalogReloadsTotal.WithLabelValues("success").Inc()
	CatalogVersion.Set(float64(version))
	CatalogRecords.WithLabelValues("offer").Set(float64(offers))
	CatalogRecords.WithLabelValues("event").Set(float64(events))
}
