// Package logger provides provider fetch logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// FetchLogger logs upstream provider calls.
type FetchLogger struct {
	*logrus.Entry
}

// NewFetchLogger creates a new fetch logger.
func NewFetchLogger(baseLogger *logrus.Logger) *FetchLogger {
	return &FetchLogger{
		Entry: baseLogger.WithField("component", "datasource"),
	}
}

// LogFetch logs a successful provider fetch.
func (fl *FetchLogger) LogFetch(provider, kind, scope string, records int, durationMs float64, cached bool) {
	fl.WithFields(logrus.Fields{
		"provider":    provider,
		"kind":        kind,
		"scope":       scope,
		"records":     records,
		"duration_ms": durationMs,
		"cached":      cached,
	}).Debug("Provider fetch completed")
}

// LogFetchError logs a failed provider fetch.
func (fl *FetchLogger) LogFetchError(provider, kind, scope string, err error) {
	fl.WithFields(logrus.Fields{
		"provider": provider,
		"kind":     kind,
		"scope":    scope,
	}).WithError(err).Error("Provider fetch failed")
}

// LogBreakerStateChange logs a circuit breaker transition.
func (fl *FetchLogger) LogBreakerStateChange(provider, from, to string) {
	fl.WithFields(logrus.Fields{
		"provider": provider,
		"from":     from,
		"to":       to,
	}).Warn("Provider circuit breaker state changed")
}

// LogStreamEvent logs price stream lifecycle events.
func (fl *FetchLogger) LogStreamEvent(provider, event string, markets int) {
	fl.WithFields(logrus.Fields{
		"provider": provider,
		"event":    event,
		"markets":  markets,
	}).Info("Price stream event")
}
