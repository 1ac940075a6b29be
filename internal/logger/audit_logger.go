// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogStaleOverwrite logs an attempt to change a finalized result.
func (al *AuditLogger) LogStaleOverwrite(entrantID, horseName string, existingPosition, attemptedPosition int, provider string) {
	al.WithFields(logrus.Fields{
		"entrant_id":         entrantID,
		"horse_name":         horseName,
		"existing_position":  existingPosition,
		"attempted_position": attemptedPosition,
		"provider":           provider,
	}).Warn("Stale overwrite ignored")
}

// LogResultOverride logs an explicit replacement of a finalized result.
func (al *AuditLogger) LogResultOverride(entrantID, horseName string, oldPosition, newPosition int, reason string) {
	al.WithFields(logrus.Fields{
		"entrant_id":   entrantID,
		"horse_name":   horseName,
		"old_position": oldPosition,
		"new_position": newPosition,
		"reason":       reason,
	}).Warn("Result overridden")
}

// LogPrecedenceReplace logs a field replaced by a higher-precedence provider.
func (al *AuditLogger) LogPrecedenceReplace(entrantID, field, oldProvider, newProvider string) {
	al.WithFields(logrus.Fields{
		"entrant_id":   entrantID,
		"field":        field,
		"old_provider": oldProvider,
		"new_provider": newProvider,
	}).Debug("Field replaced by higher precedence provider")
}

// LogSimulationRun logs a completed staking simulation.
func (al *AuditLogger) LogSimulationRun(mode string, bets, wins, pending int, staked, returned string, roi float64) {
	al.WithFields(logrus.Fields{
		"mode":           mode,
		"bets":           bets,
		"wins":           wins,
		"pending":        pending,
		"total_staked":   staked,
		"total_returned": returned,
		"roi":            roi,
	}).Info("Simulation completed")
}
