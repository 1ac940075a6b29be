// Package metrics provides the centralized Prometheus metrics registry for racefuse.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racefuse"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RacesReconciledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "races_reconciled_total",
		Help:      "Total number of races reconciled by summary status",
	}, []string{"status"})
	UnresolvedRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unresolved_records_total",
		Help:      "Provider records that could not be attached to an entrant",
	}, []string{"provider", "kind"})
	PrecedenceReplacementsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "precedence_replacements_total",
		Help:      "Field values replaced by a higher precedence provider",
	})
	ScratchingsAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scratchings_applied_total",
		Help:      "Total number of scratchings applied to entrants",
	})
	ResultsAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "results_applied_total",
		Help:      "Total number of finishing positions attached to entrants",
	})
	StaleOverwritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_overwrites_total",
		Help:      "Attempts to overwrite a finalised result",
	})
	ValuePlaysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "value_plays_total",
		Help:      "Entrants whose value score exceeded the threshold",
	})
)

// Histogram metrics
var (
	ReconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of a single race reconciliation, fetch included",
		Buckets:   prometheus.DefBuckets,
	})
	MeetingEntrants = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "race_entrants",
		Help:      "Number of fused entrants per reconciled race",
		Buckets:   []float64{2, 4, 6, 8, 10, 12, 14, 16, 20, 24},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RacesReconciledTotal)
		registry.MustRegister(UnresolvedRecordsTotal)
		registry.MustRegister(PrecedenceReplacementsTotal)
		registry.MustRegister(ScratchingsAppliedTotal)
		registry.MustRegister(ResultsAppliedTotal)
		registry.MustRegister(StaleOverwritesTotal)
		registry.MustRegister(ValuePlaysTotal)

		registry.MustRegister(ReconcileDuration)
		registry.MustRegister(MeetingEntrants)

		// Provider metrics
		registry.MustRegister(ProviderFetchesTotal)
		registry.MustRegister(ProviderFetchDuration)
		registry.MustRegister(ProviderCacheHitsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(PriceStreamMarkets)

		// Simulation metrics
		registry.MustRegister(SimulationRunsTotal)
		registry.MustRegister(SimulationROI)
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

// RecordRaceReconciled records one reconciled race.
// status is one of "ok", "no_data", "no_value_opportunities", "failed".
func RecordRaceReconciled(status string, entrants int, durationSeconds float64) {
	RacesReconciledTotal.WithLabelValues(status).Inc()
	ReconcileDuration.Observe(durationSeconds)
	if entrants > 0 {
		MeetingEntrants.Observe(float64(entrants))
	}
}

// RecordUnresolved records a provider record left unattached.
// kind is one of "unmatched", "ambiguous", "rejected".
func RecordUnresolved(provider, kind string) {
	UnresolvedRecordsTotal.WithLabelValues(provider, kind).Inc()
}

// RecordPrecedenceReplacements records field values replaced during a merge.
func RecordPrecedenceReplacements(n int) {
	PrecedenceReplacementsTotal.Add(float64(n))
}

// RecordScratchings records applied scratchings.
func RecordScratchings(n int) {
	ScratchingsAppliedTotal.Add(float64(n))
}

// RecordResults records applied results and stale overwrite attempts.
func RecordResults(applied, stale int) {
	ResultsAppliedTotal.Add(float64(applied))
	StaleOverwritesTotal.Add(float64(stale))
}

// RecordValuePlays records entrants flagged as value plays.
func RecordValuePlays(n int) {
	ValuePlaysTotal.Add(float64(n))
}
