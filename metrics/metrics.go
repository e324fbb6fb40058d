// Package metrics defines the Prometheus collectors of the service:
//   - HTTP traffic: request totals, latency and in-flight requests per route pattern
//   - calculations: outcomes per operation, labelled with the error kind
//   - search: queries per endpoint and the number of results returned
//   - catalog: size, data quality issues and the time of the last audit
//
// Collectors are registered with the default registry when the package is initialized and are
// exposed by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medcalc"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limiter_buckets",
			Help:      "Client token buckets currently tracked by the rate limiter",
		},
	)

	CalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculations by operation and outcome (ok or error kind)",
		},
		[]string{"operation", "outcome"},
	)

	SearchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search and index filter queries",
		},
		[]string{"endpoint"},
	)

	SearchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"endpoint"},
	)

	CatalogMedications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_medications",
			Help:      "Medications in the loaded catalog",
		},
	)

	CatalogQualityIssues = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_quality_issues",
			Help:      "Data quality findings of the last catalog audit by check",
		},
		[]string{"check"},
	)

	CatalogLastAudit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_last_audit_timestamp_seconds",
			Help:      "Unix time of the last completed catalog audit",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		RateLimiterBucketsTotal,
		CalculationsTotal,
		SearchQueriesTotal,
		SearchResults,
		CatalogMedications,
		CatalogQualityIssues,
		CatalogLastAudit,
	)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCalculation counts one calculation. An empty kind means it succeeded.
func RecordCalculation(operation, kind string) {
	outcome := kind
	if outcome == "" {
		outcome = "ok"
	}
	CalculationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordSearch counts one query and the number of results it produced.
func RecordSearch(endpoint string, results int) {
	SearchQueriesTotal.WithLabelValues(endpoint).Inc()
	SearchResults.WithLabelValues(endpoint).Observe(float64(results))
}
