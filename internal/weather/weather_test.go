package weather

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racefuse/internal/models"
)

func sample(track string, wind, winningTime float64) models.WeatherSample {
	return models.WeatherSample{
		RaceDate:    time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Track:       track,
		RaceNumber:  1,
		Observation: models.WeatherObservation{WindSpeed: models.FloatPtr(wind)},
		Outcome:     models.RaceOutcome{WinningTime: models.FloatPtr(winningTime)},
	}
}

func linearSamples(n int, track string) []models.WeatherSample {
	out := make([]models.WeatherSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample(track, float64(i), 70+0.5*float64(i)))
	}
	return out
}

func TestCorrelateBelowMinimumSample(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res, err := a.Correlate(linearSamples(5, "Randwick"), models.MetricWindSpeed, models.TargetWinningTime, Filter{})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNoResult))
}

func TestCorrelatePerfectLinear(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res, err := a.Correlate(linearSamples(12, "Randwick"), models.MetricWindSpeed, models.TargetWinningTime, Filter{})

	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.PearsonR, 1e-9)
	assert.Equal(t, 12, res.SampleSize)
	assert.False(t, res.Significant, "n=12 is not above the significance sample size")
}

func TestCorrelateSignificance(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	samples := linearSamples(31, "Randwick")
	for i := range samples {
		// Negative relationship.
		*samples[i].Outcome.WinningTime = 100 - float64(i)
	}

	res, err := a.Correlate(samples, models.MetricWindSpeed, models.TargetWinningTime, Filter{})

	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.PearsonR, 1e-9)
	assert.True(t, res.Significant)
}

func TestCorrelateSkipsMissingValues(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	samples := linearSamples(10, "Randwick")
	samples[3].Observation.WindSpeed = nil

	_, err := a.Correlate(samples, models.MetricWindSpeed, models.TargetWinningTime, Filter{})

	assert.True(t, errors.Is(err, models.ErrNoResult), "9 complete pairs are below the minimum")
}

func TestCorrelateZeroVariance(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	samples := make([]models.WeatherSample, 0, 12)
	for i := 0; i < 12; i++ {
		samples = append(samples, sample("Randwick", 15, 70+float64(i)))
	}

	_, err := a.Correlate(samples, models.MetricWindSpeed, models.TargetWinningTime, Filter{})

	assert.True(t, errors.Is(err, models.ErrNoResult))
}

func TestCorrelateTrackFilter(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	samples := append(linearSamples(12, "Royal Randwick"), linearSamples(6, "Flemington")...)

	res, err := a.Correlate(samples, models.MetricWindSpeed, models.TargetWinningTime, Filter{Track: "Randwick"})
	require.NoError(t, err)
	assert.Equal(t, 12, res.SampleSize)

	_, err = a.Correlate(samples, models.MetricWindSpeed, models.TargetWinningTime, Filter{Track: "Flemington"})
	assert.True(t, errors.Is(err, models.ErrNoResult))
}

func TestCorrelateUnknownMetric(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	_, err := a.Correlate(linearSamples(12, "Randwick"), "moon_phase", models.TargetWinningTime, Filter{})

	assert.True(t, errors.Is(err, ErrUnknownMetric))
}

func TestCorrelateAllKeepsOnlyResults(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	results := a.CorrelateAll(linearSamples(12, "Randwick"), Filter{})

	require.Len(t, results, 1)
	assert.Equal(t, models.MetricWindSpeed, results[0].MetricName)
	assert.Equal(t, models.TargetWinningTime, results[0].TargetName)
}

func TestPearsonKnownValue(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 5, 4, 5}

	r, err := Pearson(x, y)

	require.NoError(t, err)
	assert.InDelta(t, 0.7746, r, 1e-4)
}

func TestPearsonGuards(t *testing.T) {
	_, err := Pearson([]float64{1}, []float64{1})
	assert.True(t, errors.Is(err, models.ErrNoResult))

	_, err = Pearson([]float64{1, 2}, []float64{1})
	assert.True(t, errors.Is(err, models.ErrNoResult))
}

func TestBuckets(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	samples := []models.WeatherSample{
		sample("Randwick", 5, 70),
		sample("Randwick", 8, 72),
		sample("Randwick", 10, 74),
		sample("Randwick", 25, 80),
		sample("Randwick", 40, 90),
	}

	buckets, err := a.Buckets(samples, models.MetricWindSpeed, models.TargetWinningTime, Filter{})

	require.NoError(t, err)
	require.Len(t, buckets, 4)
	assert.Equal(t, "< 10", buckets[0].Label)
	assert.Equal(t, 2, buckets[0].Count)
	assert.InDelta(t, 71.0, buckets[0].Mean, 1e-9)
	assert.InDelta(t, 1.0, buckets[0].StdDev, 1e-9)
	assert.Equal(t, "10-20", buckets[1].Label)
	assert.Equal(t, 1, buckets[1].Count)
	assert.Equal(t, 0.0, buckets[1].StdDev)
	assert.Equal(t, 1, buckets[2].Count)
	assert.Equal(t, ">= 30", buckets[3].Label)
	assert.Equal(t, 1, buckets[3].Count)
}

func TestBucketsRequireConfiguredBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buckets = map[string][]float64{models.MetricWindSpeed: {20, 10}}
	a := NewAnalyzer(cfg, nil)

	_, err := a.Buckets(nil, models.MetricWindSpeed, models.TargetWinningTime, Filter{})
	assert.Error(t, err)

	_, err = a.Buckets(nil, models.MetricHumidity, models.TargetWinningTime, Filter{})
	assert.Error(t, err)
}

func TestBucketsEmptyBinsReported(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	buckets, err := a.Buckets(nil, models.MetricHumidity, models.TargetWinningMargin, Filter{})

	require.NoError(t, err)
	require.Len(t, buckets, 4)
	for _, b := range buckets {
		assert.Equal(t, 0, b.Count)
	}
}
