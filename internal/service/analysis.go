package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/backtest"
	"github.com/yourusername/racefuse/internal/datasource"
	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/metrics"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/repository"
	"github.com/yourusername/racefuse/internal/valuation"
	"github.com/yourusername/racefuse/internal/weather"
)

// AnalysisService runs the staking simulator and the weather correlation
// over stored history
type AnalysisService struct {
	entrants      repository.EntrantRepository
	weatherRepo   repository.WeatherRepository
	weatherSource datasource.WeatherSource
	scorer        *valuation.Scorer
	simulator     *backtest.Simulator
	analyzer      *weather.Analyzer
	logger        *logrus.Entry
}

// NewAnalysisService creates a new analysis service. Repositories and the
// weather source may be nil; operations that need them return an error.
func NewAnalysisService(
	entrants repository.EntrantRepository,
	weatherRepo repository.WeatherRepository,
	weatherSource datasource.WeatherSource,
	scorer *valuation.Scorer,
	simulator *backtest.Simulator,
	analyzer *weather.Analyzer,
	baseLogger *logrus.Logger,
) *AnalysisService {
	if baseLogger == nil {
		baseLogger = logger.Discard()
	}
	return &AnalysisService{
		entrants:      entrants,
		weatherRepo:   weatherRepo,
		weatherSource: weatherSource,
		scorer:        scorer,
		simulator:     simulator,
		analyzer:      analyzer,
		logger:        baseLogger.WithField("component", "analysis_service"),
	}
}

// Simulate stakes every value play stored between from and to. With
// settledOnly, entrants still waiting on a result are left out and counted
// as excluded instead of lost.
func (s *AnalysisService) Simulate(ctx context.Context, from, to time.Time, settledOnly bool) (*backtest.Report, error) {
	if s.entrants == nil {
		return nil, ErrNoRecordStore
	}
	entrants, err := s.entrants.GetByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load entrants: %w", err)
	}

	// Stored scores may predate a threshold or price change
	scored := s.scorer.ScoreAll(entrants)

	var report *backtest.Report
	if settledOnly {
		report = s.simulator.SimulateSettled(scored)
	} else {
		report = s.simulator.Simulate(scored)
	}
	metrics.RecordSimulation(string(report.Mode), report.ROI)
	return report, nil
}

// ImportWeather copies weather samples for the range from the provider into
// the record store
func (s *AnalysisService) ImportWeather(ctx context.Context, from, to time.Time) (int, error) {
	if s.weatherSource == nil {
		return 0, errors.New("no weather source configured")
	}
	if s.weatherRepo == nil {
		return 0, ErrNoRecordStore
	}

	samples, err := s.weatherSource.FetchWeather(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch weather: %w", err)
	}
	if len(samples) == 0 {
		return 0, nil
	}
	if err := s.weatherRepo.InsertBatch(ctx, samples); err != nil {
		return 0, fmt.Errorf("failed to store weather: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"samples": len(samples),
	}).Info("Weather imported")
	return len(samples), nil
}

// Correlate computes the Pearson correlation of metric against target for
// races between from and to
func (s *AnalysisService) Correlate(ctx context.Context, from, to time.Time, metric, target string, filter weather.Filter) (*models.CorrelationResult, error) {
	samples, err := s.loadWeather(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Correlate(samples, metric, target, filter)
}

// CorrelateAll computes every metric and target pair with enough data
func (s *AnalysisService) CorrelateAll(ctx context.Context, from, to time.Time, filter weather.Filter) ([]models.CorrelationResult, error) {
	samples, err := s.loadWeather(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return s.analyzer.CorrelateAll(samples, filter), nil
}

// Buckets groups races into the configured bins of metric
func (s *AnalysisService) Buckets(ctx context.Context, from, to time.Time, metric, target string, filter weather.Filter) ([]weather.Bucket, error) {
	samples, err := s.loadWeather(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Buckets(samples, metric, target, filter)
}

// loadWeather prefers the record store and falls back to the provider when
// nothing has been imported for the range
func (s *AnalysisService) loadWeather(ctx context.Context, from, to time.Time) ([]models.WeatherSample, error) {
	if s.weatherRepo != nil {
		samples, err := s.weatherRepo.GetByDateRange(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load weather: %w", err)
		}
		if len(samples) > 0 || s.weatherSource == nil {
			return samples, nil
		}
	}
	if s.weatherSource == nil {
		return nil, errors.New("no weather source configured")
	}

	samples, err := s.weatherSource.FetchWeather(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather: %w", err)
	}
	return samples, nil
}
