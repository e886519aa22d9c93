// Package metrics defines collection-layer metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collection counter vectors
var (
	ObservationsCollectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "observations_collected_total",
		Help:      "Total number of raw observations collected by source",
	}, []string{"source"})

	SourceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "source_errors_total",
		Help:      "Total number of source errors by source and taxonomy code",
	}, []string{"source", "code"})

	BreakerTripsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "breaker_trips_total",
		Help:      "Total number of circuit breaker open transitions by source",
	}, []string{"source"})
)

// Collection gauge vectors
var (
	SourceBudgetRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sharpline",
		Name:      "source_budget_remaining",
		Help:      "Remaining daily request budget per source",
	}, []string{"source"})
)

// Collection histogram vectors
var (
	FetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sharpline",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of source fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

// RecordObservationsCollected records collected observations for a source.
func RecordObservationsCollected(source string, count int) {
	ObservationsCollectedTotal.WithLabelValues(source).Add(float64(count))
}

// RecordSourceError records one source error by taxonomy code.
func RecordSourceError(source, code string) {
	SourceErrorsTotal.WithLabelValues(source, code).Inc()
}

// RecordBreakerTrip records one breaker open transition.
func RecordBreakerTrip(source string) {
	BreakerTripsTotal.WithLabelValues(source).Inc()
}

// UpdateSourceBudget updates a source's remaining budget gauge.
func UpdateSourceBudget(source string, remaining float64) {
	SourceBudgetRemaining.WithLabelValues(source).Set(remaining)
}

// RecordFetchDuration records one fetch's duration.
func RecordFetchDuration(source string, durationSeconds float64) {
	FetchDuration.WithLabelValues(source).Observe(durationSeconds)
}
