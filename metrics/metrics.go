// Package metrics provides Prometheus metrics for feed aggregation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts feed fetches by outcome and error category.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedwatch",
			Name:      "fetch_total",
			Help:      "Total number of feed fetches",
		},
		[]string{"outcome", "category"},
	)

	// FetchDuration measures network fetch duration.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "feedwatch",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of network feed fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// CacheLookups counts fetch cache lookups by result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedwatch",
			Name:      "cache_lookups_total",
			Help:      "Total number of fetch cache lookups",
		},
		[]string{"result"},
	)

	// AggregationDuration measures whole aggregation runs.
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "feedwatch",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of aggregation runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// AggregatedItems observes how many items each run produced.
	AggregatedItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "feedwatch",
			Name:      "aggregated_items",
			Help:      "Distribution of item counts per aggregation run",
			Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// RecordFetchSuccess records a fetch that produced entries.
func RecordFetchSuccess() {
	FetchTotal.WithLabelValues("success", "").Inc()
}

// RecordFetchFailure records a failed fetch under its error category.
func RecordFetchFailure(category string) {
	FetchTotal.WithLabelValues("failure", category).Inc()
}

// RecordNetworkFetch records the duration of one network round trip.
func RecordNetworkFetch(seconds float64) {
	FetchDuration.Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordAggregation records one aggregation run.
func RecordAggregation(seconds float64, items int) {
	AggregationDuration.Observe(seconds)
	AggregatedItems.Observe(float64(items))
}
