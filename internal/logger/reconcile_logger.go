// Package logger provides reconciliation-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// ReconcileLogger provides dedicated logging for the reconciliation pipeline.
type ReconcileLogger struct {
	*logrus.Entry
}

// NewReconcileLogger creates a new reconcile logger.
func NewReconcileLogger(baseLogger *logrus.Logger) *ReconcileLogger {
	return &ReconcileLogger{
		Entry: baseLogger.WithField("component", "reconcile"),
	}
}

// LogUnresolved logs a provider record that could not be bound to an entrant.
func (rl *ReconcileLogger) LogUnresolved(raceKey, provider, horseName, reason string) {
	rl.WithFields(logrus.Fields{
		"race_key":   raceKey,
		"provider":   provider,
		"horse_name": horseName,
		"reason":     reason,
	}).Warn("Record unresolved")
}

// LogAmbiguous logs a record that matched more than one entrant under some rule.
func (rl *ReconcileLogger) LogAmbiguous(raceKey, provider, horseName string) {
	rl.WithFields(logrus.Fields{
		"race_key":   raceKey,
		"provider":   provider,
		"horse_name": horseName,
	}).Warn("Ambiguous match treated as no match")
}

// LogRejected logs a record rejected before matching.
func (rl *ReconcileLogger) LogRejected(raceKey, provider string, err error) {
	rl.WithFields(logrus.Fields{
		"race_key": raceKey,
		"provider": provider,
	}).WithError(err).Warn("Record rejected")
}

// LogRaceReconciled logs the outcome of reconciling one race.
func (rl *ReconcileLogger) LogRaceReconciled(raceKey string, entrants, unresolved, ambiguous, rejected int, durationMs float64) {
	rl.WithFields(logrus.Fields{
		"race_key":    raceKey,
		"entrants":    entrants,
		"unresolved":  unresolved,
		"ambiguous":   ambiguous,
		"rejected":    rejected,
		"duration_ms": durationMs,
	}).Info("Race reconciled")
}

// LogScratchingUnresolved logs a scratching that matched no entrant.
func (rl *ReconcileLogger) LogScratchingUnresolved(track string, raceNumber int, horseName string, tabNumber int, reason string) {
	rl.WithFields(logrus.Fields{
		"track":       track,
		"race_number": raceNumber,
		"horse_name":  horseName,
		"tab_number":  tabNumber,
		"reason":      reason,
	}).Warn("Scratching unresolved")
}

// LogResultUnresolved logs a result record that matched no entrant.
func (rl *ReconcileLogger) LogResultUnresolved(track string, raceNumber int, horseName, reason string) {
	rl.WithFields(logrus.Fields{
		"track":       track,
		"race_number": raceNumber,
		"horse_name":  horseName,
		"reason":      reason,
	}).Warn("Result unresolved")
}

// LogMeetingSummary logs the batch summary of a meeting.
func (rl *ReconcileLogger) LogMeetingSummary(date, track string, races, ok, noData, noValue, failed int) {
	rl.WithFields(logrus.Fields{
		"date":                   date,
		"track":                  track,
		"races":                  races,
		"ok":                     ok,
		"no_data":                noData,
		"no_value_opportunities": noValue,
		"failed":                 failed,
	}).Info("Meeting reconciled")
}
