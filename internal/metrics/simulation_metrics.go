// Package metrics defines staking simulation metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SimulationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_runs_total",
		Help:      "Total number of staking simulations by mode",
	}, []string{"mode"})

	SimulationROI = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "simulation_roi_percent",
		Help:      "ROI of the most recent simulation by mode",
	}, []string{"mode"})
)

// RecordSimulation records a completed simulation.
// mode should be one of: "win", "place"
func RecordSimulation(mode string, roi float64) {
	SimulationRunsTotal.WithLabelValues(mode).Inc()
	SimulationROI.WithLabelValues(mode).Set(roi)
}
