// Package metrics provides the centralized Prometheus registry for the
// analysis core.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SignalsFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "signals_fired_total",
		Help:      "Total number of candidate signals fired by strategy",
	}, []string{"strategy", "variant"})
	RecommendationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "recommendations_total",
		Help:      "Total number of recommendations emitted by the arbiter",
	})
	JuiceRejectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "juice_rejects_total",
		Help:      "Total number of recommendations rejected by the juice filter",
	})
	AmbiguousGroupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "ambiguous_groups_total",
		Help:      "Total number of arbitration groups dropped as ambiguous",
	})
	TuningTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharpline",
		Name:      "tuning_transitions_total",
		Help:      "Total number of tuner status transitions by target status",
	}, []string{"to_status"})
)

// Gauge metrics
var (
	ActiveVariants = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sharpline",
		Name:      "active_variants",
		Help:      "Number of catalog variants currently ACTIVE",
	})
	PipelineLagSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sharpline",
		Name:      "pipeline_lag_seconds",
		Help:      "Age of the newest raw observation not yet promoted to curated",
	})
	ArbiterLastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sharpline",
		Name:      "arbiter_last_run_timestamp_seconds",
		Help:      "Unix time of the last successful arbiter run",
	})
)

// Histogram metrics
var (
	DetectorRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sharpline",
		Name:      "detector_run_duration_seconds",
		Help:      "Duration of detector engine runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sharpline",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(SignalsFiredTotal)
		registry.MustRegister(RecommendationsTotal)
		registry.MustRegister(JuiceRejectsTotal)
		registry.MustRegister(AmbiguousGroupsTotal)
		registry.MustRegister(TuningTransitionsTotal)

		// Register gauge metrics
		registry.MustRegister(ActiveVariants)
		registry.MustRegister(PipelineLagSeconds)
		registry.MustRegister(ArbiterLastRunTimestamp)

		// Register histogram metrics
		registry.MustRegister(DetectorRunDuration)
		registry.MustRegister(BacktestDuration)

		// Register collection metrics
		registry.MustRegister(ObservationsCollectedTotal)
		registry.MustRegister(SourceErrorsTotal)
		registry.MustRegister(BreakerTripsTotal)
		registry.MustRegister(SourceBudgetRemaining)
		registry.MustRegister(FetchDuration)

		// Register pipeline metrics
		registry.MustRegister(StagingRowsTotal)
		registry.MustRegister(StagingRejectsTotal)
		registry.MustRegister(CuratedPointsTotal)
		registry.MustRegister(OutcomesResolvedTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSignalFired records one fired candidate signal.
func RecordSignalFired(strategy, variant string) {
	SignalsFiredTotal.WithLabelValues(strategy, variant).Inc()
}

// RecordRecommendation records one emitted recommendation.
func RecordRecommendation() {
	RecommendationsTotal.Inc()
}

// RecordJuiceReject records one juice-filter rejection.
func RecordJuiceReject() {
	JuiceRejectsTotal.Inc()
}

// RecordAmbiguousGroup records one dropped arbitration group.
func RecordAmbiguousGroup() {
	AmbiguousGroupsTotal.Inc()
}

// RecordTuningTransition records one tuner status transition.
func RecordTuningTransition(toStatus string) {
	TuningTransitionsTotal.WithLabelValues(toStatus).Inc()
}

// RecordBacktest records one backtest run.
func RecordBacktest(durationSeconds float64) {
	BacktestDuration.Observe(durationSeconds)
}

// RecordDetectorRun records one detector engine run.
func RecordDetectorRun(durationSeconds float64) {
	DetectorRunDuration.Observe(durationSeconds)
}

// UpdateActiveVariants updates the active variant gauge.
func UpdateActiveVariants(count float64) {
	ActiveVariants.Set(count)
}

// UpdatePipelineLag updates the pipeline lag gauge.
func UpdatePipelineLag(seconds float64) {
	PipelineLagSeconds.Set(seconds)
}

// UpdateArbiterLastRun stamps the last successful arbiter run.
func UpdateArbiterLastRun(unixSeconds float64) {
	ArbiterLastRunTimestamp.Set(unixSeconds)
}
