// Package weather relates environmental conditions to race outcomes. It
// shares only the record store with the entrant pipeline.
package weather

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
)

// ErrUnknownMetric is returned for names that are neither a weather metric
// nor an outcome target
var ErrUnknownMetric = errors.New("unknown metric")

// Config holds the guardrails of the analysis
type Config struct {
	// MinSampleSize is the fewest paired races a correlation is reported for.
	MinSampleSize int
	// SignificantR and SignificantN define the "significant" label: |r| above
	// SignificantR with more than SignificantN races. It is a rule of thumb,
	// not a statistical test.
	SignificantR float64
	SignificantN int
	// Buckets maps a metric to its ascending bin boundaries.
	Buckets map[string][]float64
}

// DefaultConfig returns the standard guardrails
func DefaultConfig() Config {
	return Config{
		MinSampleSize: 10,
		SignificantR:  0.3,
		SignificantN:  30,
		Buckets: map[string][]float64{
			models.MetricWindSpeed:     {10, 20, 30},
			models.MetricTemperature:   {10, 20, 30},
			models.MetricHumidity:      {40, 60, 80},
			models.MetricPrecipitation: {0.1, 5, 15},
		},
	}
}

// Filter narrows the races an analysis runs over
type Filter struct {
	Track string
}

// Analyzer computes correlations and bucket statistics
type Analyzer struct {
	config Config
	tracks *matching.TrackMatcher
}

// NewAnalyzer creates an analyzer. A nil track matcher uses the default
// normalizer.
func NewAnalyzer(cfg Config, tracks *matching.TrackMatcher) *Analyzer {
	if tracks == nil {
		tracks = matching.NewTrackMatcher(nil)
	}
	return &Analyzer{config: cfg, tracks: tracks}
}

// Correlate computes Pearson's r between metric and target over the races
// where both are recorded. Too few pairs or a constant series give
// models.ErrNoResult.
func (a *Analyzer) Correlate(samples []models.WeatherSample, metric, target string, filter Filter) (*models.CorrelationResult, error) {
	if !models.IsKnownMetric(metric) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if !models.IsKnownMetric(target) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, target)
	}

	x, y := a.pairs(samples, metric, target, filter)
	if len(x) < a.config.MinSampleSize {
		return nil, fmt.Errorf("%s/%s: %d pairs below minimum %d: %w",
			metric, target, len(x), a.config.MinSampleSize, models.ErrNoResult)
	}

	r, err := Pearson(x, y)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", metric, target, err)
	}

	return &models.CorrelationResult{
		MetricName:  metric,
		TargetName:  target,
		PearsonR:    r,
		SampleSize:  len(x),
		Significant: math.Abs(r) > a.config.SignificantR && len(x) > a.config.SignificantN,
	}, nil
}

// CorrelateAll computes every weather metric against every outcome target
// and keeps the pairs that produced a result.
func (a *Analyzer) CorrelateAll(samples []models.WeatherSample, filter Filter) []models.CorrelationResult {
	var results []models.CorrelationResult
	for _, metric := range models.WeatherMetrics {
		for _, target := range models.OutcomeTargets {
			res, err := a.Correlate(samples, metric, target, filter)
			if err != nil {
				continue
			}
			results = append(results, *res)
		}
	}
	return results
}

func (a *Analyzer) pairs(samples []models.WeatherSample, metric, target string, filter Filter) ([]float64, []float64) {
	x := make([]float64, 0, len(samples))
	y := make([]float64, 0, len(samples))
	for i := range samples {
		s := &samples[i]
		if filter.Track != "" && !a.tracks.SameTrack(filter.Track, s.Track) {
			continue
		}
		xv, okX := s.Value(metric)
		yv, okY := s.Value(target)
		if !okX || !okY {
			continue
		}
		x = append(x, xv)
		y = append(y, yv)
	}
	return x, y
}

// Pearson returns the correlation coefficient of two equal-length series.
// It returns models.ErrNoResult instead of dividing by zero.
func Pearson(x, y []float64) (float64, error) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, models.ErrNoResult
	}

	meanX, meanY := mean(x), mean(y)

	numerator := 0.0
	sumSqX := 0.0
	sumSqY := 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		sumSqX += dx * dx
		sumSqY += dy * dy
	}

	denominator := math.Sqrt(sumSqX * sumSqY)
	if denominator == 0 {
		return 0, models.ErrNoResult
	}

	r := numerator / denominator
	// Clamp rounding drift.
	return math.Max(-1, math.Min(1, r)), nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
