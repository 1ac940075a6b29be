package models

import "time"

// Weather metric names
const (
	MetricTemperature   = "temperature"
	MetricWindSpeed     = "wind_speed"
	MetricHumidity      = "humidity"
	MetricPrecipitation = "precipitation"
)

// Outcome metric names
const (
	TargetWinningTime   = "winning_time"
	TargetWinningMargin = "winning_margin"
)

// WeatherMetrics lists every supported environmental metric
var WeatherMetrics = []string{MetricTemperature, MetricWindSpeed, MetricHumidity, MetricPrecipitation}

// OutcomeTargets lists every supported outcome metric
var OutcomeTargets = []string{TargetWinningTime, TargetWinningMargin}

// WeatherObservation is the conditions recorded for one race
type WeatherObservation struct {
	Temperature   *float64 `db:"temperature" json:"temperature,omitempty"`
	WindSpeed     *float64 `db:"wind_speed" json:"wind_speed,omitempty"`
	Humidity      *float64 `db:"humidity" json:"humidity,omitempty"`
	Precipitation *float64 `db:"precipitation" json:"precipitation,omitempty"`
}

// RaceOutcome is the timing outcome of one race
type RaceOutcome struct {
	WinningTime   *float64 `db:"winning_time" json:"winning_time,omitempty"`
	WinningMargin *float64 `db:"winning_margin" json:"winning_margin,omitempty"`
}

// WeatherSample joins a race's observation with its outcome
type WeatherSample struct {
	RaceDate    time.Time          `db:"race_date" json:"race_date"`
	Track       string             `db:"track" json:"track"`
	RaceNumber  int                `db:"race_number" json:"race_number"`
	Observation WeatherObservation `json:"observation"`
	Outcome     RaceOutcome        `json:"outcome"`
}

// Value looks up a weather metric or outcome target by name. The second
// return is false when the name is unknown or the value was not recorded.
func (s *WeatherSample) Value(name string) (float64, bool) {
	var v *float64
	switch name {
	case MetricTemperature:
		v = s.Observation.Temperature
	case MetricWindSpeed:
		v = s.Observation.WindSpeed
	case MetricHumidity:
		v = s.Observation.Humidity
	case MetricPrecipitation:
		v = s.Observation.Precipitation
	case TargetWinningTime:
		v = s.Outcome.WinningTime
	case TargetWinningMargin:
		v = s.Outcome.WinningMargin
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// IsKnownMetric reports whether name is a weather metric or outcome target
func IsKnownMetric(name string) bool {
	for _, m := range WeatherMetrics {
		if m == name {
			return true
		}
	}
	for _, t := range OutcomeTargets {
		if t == name {
			return true
		}
	}
	return false
}

// CorrelationResult is the Pearson correlation between one metric and one
// target. Recomputed per query.
type CorrelationResult struct {
	MetricName  string  `json:"metric_name"`
	TargetName  string  `json:"target_name"`
	PearsonR    float64 `json:"pearson_r"`
	SampleSize  int     `json:"sample_size"`
	Significant bool    `json:"significant"`
}
