package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/racefuse/internal/models"
)

// Source is implemented by every upstream provider client
type Source interface {
	// Name returns the provider name records are tagged with
	Name() models.Provider
}

// EntrantSource supplies the race card: which meetings exist and who runs
type EntrantSource interface {
	Source
	// FetchMeetings lists the meetings scheduled on date
	FetchMeetings(ctx context.Context, date time.Time) ([]models.Meeting, error)
	// FetchEntrants retrieves the field for one race
	FetchEntrants(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error)
}

// RatingSource supplies model ratings and rated prices
type RatingSource interface {
	Source
	FetchRatings(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error)
}

// MarketSource supplies live market win and place prices
type MarketSource interface {
	Source
	FetchPrices(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error)
}

// ScratchingSource supplies late withdrawals
type ScratchingSource interface {
	Source
	FetchScratchings(ctx context.Context, date time.Time) ([]models.ScratchingRecord, error)
}

// ResultSource supplies official finishing positions
type ResultSource interface {
	Source
	FetchResults(ctx context.Context, date time.Time) ([]models.ResultRecord, error)
}

// WeatherSource supplies per-race weather observations joined to outcomes
type WeatherSource interface {
	Source
	FetchWeather(ctx context.Context, from, to time.Time) ([]models.WeatherSample, error)
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error, or the sentinel for the code
func (e DataSourceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelFor(e.Code)
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeCircuitOpen          = "circuit_open"
	ErrCodeUnknown              = "unknown"
)

var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
	ErrCircuitOpen          = errors.New("circuit breaker open")
	ErrNotConnected         = errors.New("price stream not connected")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func sentinelFor(code string) error {
	switch code {
	case ErrCodeRateLimitExceeded:
		return ErrRateLimitExceeded
	case ErrCodeAuthenticationFailed:
		return ErrAuthenticationFailed
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeInvalidData:
		return ErrInvalidData
	case ErrCodeNetworkError:
		return ErrNetworkError
	case ErrCodeServerError:
		return ErrServerError
	case ErrCodeCircuitOpen:
		return ErrCircuitOpen
	}
	return nil
}
