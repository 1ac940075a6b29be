package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	log := NewLogger("debug", "development")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLogger("not-a-level", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerProductionUsesJSON(t *testing.T) {
	log := NewLogger("info", "production")
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestReconcileLoggerUnresolved(t *testing.T) {
	log, buf := setupTestLogger()
	reconcileLogger := NewReconcileLogger(log)

	reconcileLogger.LogUnresolved("2024-03-02|rosehill|3", "ratings_feed", "Dont Tell Me", "no candidate")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "reconcile", logEntry["component"])
	assert.Equal(t, "ratings_feed", logEntry["provider"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestReconcileLoggerRejected(t *testing.T) {
	log, buf := setupTestLogger()
	reconcileLogger := NewReconcileLogger(log)

	reconcileLogger.LogRejected("2024-03-02|rosehill|3", "racing_api", errors.New("missing horse name"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "missing horse name", logEntry["error"])
}

func TestReconcileLoggerRaceReconciled(t *testing.T) {
	log, buf := setupTestLogger()
	reconcileLogger := NewReconcileLogger(log)

	reconcileLogger.LogRaceReconciled("2024-03-02|rosehill|3", 12, 1, 0, 0, 3.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(12), logEntry["entrants"])
	assert.Equal(t, "Race reconciled", logEntry["msg"])
}

func TestAuditLoggerStaleOverwrite(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogStaleOverwrite("entrant-1", "Dont Tell Me", 1, 2, "results_feed")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, float64(1), logEntry["existing_position"])
	assert.Equal(t, float64(2), logEntry["attempted_position"])
}

func TestAuditLoggerSimulationRun(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogSimulationRun("win", 10, 2, 0, "100", "100", 0)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "win", logEntry["mode"])
	assert.Equal(t, "100", logEntry["total_staked"])
}

func TestFetchLoggerError(t *testing.T) {
	log, buf := setupTestLogger()
	fetchLogger := NewFetchLogger(log)

	fetchLogger.LogFetchError("racing_api", "entrants", "2024-03-02|rosehill|3", errors.New("timeout"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "datasource", logEntry["component"])
	assert.Equal(t, "error", logEntry["level"])
}

func TestDiscardLogger(t *testing.T) {
	log := Discard()
	assert.NotPanics(t, func() {
		NewReconcileLogger(log).LogAmbiguous("k", "p", "h")
	})
}

func BenchmarkReconcileLoggerUnresolved(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	log.SetFormatter(&logrus.JSONFormatter{})
	reconcileLogger := NewReconcileLogger(log)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reconcileLogger.LogUnresolved("2024-03-02|rosehill|3", "ratings_feed", "Dont Tell Me", "no candidate")
	}
}
