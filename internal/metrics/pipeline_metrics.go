// Package metrics defines pipeline-zone metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline counter vectors
var (
	StagingRowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "staging_rows_total",
		Help:      "Total number of rows promoted into the staging zone",
	})

	StagingRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "staging_rejects_total",
		Help:      "Total number of staging rejects by reason",
	}, []string{"reason"})

	CuratedPointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "curated_points_total",
		Help:      "Total number of points written to the curated zone",
	})

	OutcomesResolvedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "outcomes_resolved_total",
		Help:      "Total number of game outcomes resolved",
	})
)

// RecordStagingRows records rows promoted into staging.
func RecordStagingRows(count int) {
	StagingRowsTotal.Add(float64(count))
}

// RecordStagingReject records one staging reject by reason.
func RecordStagingReject(reason string) {
	StagingRejectsTotal.WithLabelValues(reason).Inc()
}

// RecordCuratedPoints records points written to curated.
func RecordCuratedPoints(count int) {
	CuratedPointsTotal.Add(float64(count))
}

// RecordOutcomeResolved records one resolved outcome.
func RecordOutcomeResolved() {
	OutcomesResolvedTotal.Inc()
}
