package weather

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/racefuse/internal/models"
)

// Bucket is one bin of a categorical analysis. Lower is inclusive and Upper
// exclusive; nil means unbounded.
type Bucket struct {
	Label  string   `json:"label"`
	Lower  *float64 `json:"lower,omitempty"`
	Upper  *float64 `json:"upper,omitempty"`
	Count  int      `json:"count"`
	Mean   float64  `json:"mean"`
	StdDev float64  `json:"std_dev"`
}

// Buckets groups races into the configured bins of metric and reports the
// mean, count and population standard deviation of target in each bin.
// Empty bins are reported with zero count.
func (a *Analyzer) Buckets(samples []models.WeatherSample, metric, target string, filter Filter) ([]Bucket, error) {
	if !models.IsKnownMetric(target) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, target)
	}
	bounds, ok := a.config.Buckets[metric]
	if !ok || len(bounds) == 0 {
		return nil, fmt.Errorf("no bucket boundaries configured for %s", metric)
	}
	if !sort.Float64sAreSorted(bounds) {
		return nil, fmt.Errorf("bucket boundaries for %s are not ascending", metric)
	}

	buckets := newBuckets(bounds)
	values := make([][]float64, len(buckets))

	x, y := a.pairs(samples, metric, target, filter)
	for i := range x {
		idx := sort.Search(len(bounds), func(j int) bool { return bounds[j] > x[i] })
		values[idx] = append(values[idx], y[i])
	}

	for i := range buckets {
		buckets[i].Count = len(values[i])
		buckets[i].Mean = mean(values[i])
		buckets[i].StdDev = stdDev(values[i], buckets[i].Mean)
	}
	return buckets, nil
}

func newBuckets(bounds []float64) []Bucket {
	buckets := make([]Bucket, len(bounds)+1)
	for i := range buckets {
		var lower, upper *float64
		if i > 0 {
			lower = models.FloatPtr(bounds[i-1])
		}
		if i < len(bounds) {
			upper = models.FloatPtr(bounds[i])
		}
		buckets[i] = Bucket{Label: label(lower, upper), Lower: lower, Upper: upper}
	}
	return buckets
}

func label(lower, upper *float64) string {
	switch {
	case lower == nil:
		return fmt.Sprintf("< %g", *upper)
	case upper == nil:
		return fmt.Sprintf(">= %g", *lower)
	default:
		return fmt.Sprintf("%g-%g", *lower, *upper)
	}
}

func stdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
