package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/models"
)

const dateLayout = "2006-01-02"

// RacingAPIClient is the backbone provider. It serves the race card as well
// as scratchings, official results and weather observations.
type RacingAPIClient struct {
	name       models.Provider
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logger.FetchLogger
}

// RacingAPIMeeting is a meeting as listed by the racing API
type RacingAPIMeeting struct {
	Date  string `json:"date"`
	Venue string `json:"venue"`
	Races []int  `json:"races"`
}

// RacingAPIField is the runner list for one race
type RacingAPIField struct {
	RaceID  string            `json:"race_id"`
	Runners []RacingAPIRunner `json:"runners"`
}

// RacingAPIRunner is one runner of a race field
type RacingAPIRunner struct {
	RunnerID string  `json:"runner_id"`
	Name     string  `json:"name"`
	TabNo    *int    `json:"tab_no"`
	Jockey   string  `json:"jockey"`
	Trainer  string  `json:"trainer"`
	Win      *string `json:"win"`
	Place    *string `json:"place"`
}

// RacingAPIScratching is a late withdrawal
type RacingAPIScratching struct {
	Venue      string    `json:"venue"`
	RaceNumber int       `json:"race_number"`
	RunnerID   string    `json:"runner_id"`
	Name       string    `json:"name"`
	TabNo      *int      `json:"tab_no"`
	Reason     string    `json:"reason"`
	Time       time.Time `json:"time"`
}

// RacingAPIResult is the official result of one race
type RacingAPIResult struct {
	RaceID     string                  `json:"race_id"`
	Venue      string                  `json:"venue"`
	RaceNumber int                     `json:"race_number"`
	Placings   []RacingAPIResultRunner `json:"placings"`
}

// RacingAPIResultRunner is one runner's finishing line
type RacingAPIResultRunner struct {
	RunnerID string   `json:"runner_id"`
	Name     string   `json:"name"`
	TabNo    *int     `json:"tab_no"`
	Position int      `json:"position"`
	SP       *string  `json:"sp"`
	Margin   *float64 `json:"margin"`
}

// RacingAPIWeather is the weather recorded for one race plus its outcome
type RacingAPIWeather struct {
	Date          string   `json:"date"`
	Venue         string   `json:"venue"`
	RaceNumber    int      `json:"race_number"`
	Temperature   *float64 `json:"temperature"`
	WindSpeed     *float64 `json:"wind_speed"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"precipitation"`
	WinningTime   *float64 `json:"winning_time"`
	WinningMargin *float64 `json:"winning_margin"`
}

// NewRacingAPIClient creates a new racing API client
func NewRacingAPIClient(name string, httpClient *RateLimitedHTTPClient, baseURL, apiKey string, fl *logger.FetchLogger) *RacingAPIClient {
	if fl == nil {
		fl = logger.NewFetchLogger(logger.Discard())
	}
	return &RacingAPIClient{
		name:       models.Provider(name),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     fl,
	}
}

// Name returns the provider name
func (c *RacingAPIClient) Name() models.Provider {
	return c.name
}

// FetchMeetings lists the meetings scheduled on date
func (c *RacingAPIClient) FetchMeetings(ctx context.Context, date time.Time) ([]models.Meeting, error) {
	start := time.Now()
	day := date.Format(dateLayout)

	var payload []RacingAPIMeeting
	err := c.httpClient.GetJSON(ctx, c.baseURL, "/meetings", url.Values{"date": {day}}, c.apiKey, &payload)
	if err != nil {
		observeFetch(c.logger, c.name, "meetings", day, 0, start, err)
		return nil, err
	}

	meetings := make([]models.Meeting, 0, len(payload))
	for _, m := range payload {
		d, err := time.Parse(dateLayout, m.Date)
		if err != nil {
			d = date
		}
		meetings = append(meetings, models.Meeting{
			Date:  models.RaceDay(d),
			Track: m.Venue,
			Races: m.Races,
		})
	}

	observeFetch(c.logger, c.name, "meetings", day, len(meetings), start, nil)
	return meetings, nil
}

// FetchEntrants retrieves the field for one race
func (c *RacingAPIClient) FetchEntrants(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	start := time.Now()

	var field RacingAPIField
	if err := c.httpClient.GetJSON(ctx, c.baseURL, racePath(key, "runners"), nil, c.apiKey, &field); err != nil {
		observeFetch(c.logger, c.name, "entrants", key.String(), 0, start, err)
		return nil, err
	}

	records := make([]models.RawRunnerRecord, 0, len(field.Runners))
	for _, r := range field.Runners {
		win, err := parsePrice(r.Win)
		if err != nil {
			err = NewDataSourceError(string(c.name), ErrCodeInvalidData, fmt.Sprintf("win price for %s", r.Name), err)
			observeFetch(c.logger, c.name, "entrants", key.String(), 0, start, err)
			return nil, err
		}
		place, err := parsePrice(r.Place)
		if err != nil {
			err = NewDataSourceError(string(c.name), ErrCodeInvalidData, fmt.Sprintf("place price for %s", r.Name), err)
			observeFetch(c.logger, c.name, "entrants", key.String(), 0, start, err)
			return nil, err
		}

		records = append(records, models.RawRunnerRecord{
			Provider:   c.name,
			RaceID:     field.RaceID,
			RunnerID:   r.RunnerID,
			Track:      key.Track,
			RaceNumber: key.RaceNumber,
			HorseName:  r.Name,
			TabNumber:  r.TabNo,
			Jockey:     r.Jockey,
			Trainer:    r.Trainer,
			WinPrice:   win,
			PlacePrice: place,
		})
	}

	observeFetch(c.logger, c.name, "entrants", key.String(), len(records), start, nil)
	return records, nil
}

// FetchPrices returns the market prices carried on the race card. A racing
// API that is not the backbone is merged as a market source.
func (c *RacingAPIClient) FetchPrices(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	return c.FetchEntrants(ctx, key)
}

// FetchScratchings retrieves the withdrawals announced for date
func (c *RacingAPIClient) FetchScratchings(ctx context.Context, date time.Time) ([]models.ScratchingRecord, error) {
	start := time.Now()
	day := date.Format(dateLayout)

	var payload []RacingAPIScratching
	if err := c.httpClient.GetJSON(ctx, c.baseURL, "/scratchings", url.Values{"date": {day}}, c.apiKey, &payload); err != nil {
		observeFetch(c.logger, c.name, "scratchings", day, 0, start, err)
		return nil, err
	}

	records := make([]models.ScratchingRecord, 0, len(payload))
	for _, s := range payload {
		records = append(records, models.ScratchingRecord{
			Provider:   c.name,
			RunnerID:   s.RunnerID,
			Track:      s.Venue,
			RaceNumber: s.RaceNumber,
			HorseName:  s.Name,
			TabNumber:  s.TabNo,
			Reason:     s.Reason,
			Timestamp:  s.Time,
		})
	}

	observeFetch(c.logger, c.name, "scratchings", day, len(records), start, nil)
	return records, nil
}

// FetchResults retrieves official results for date
func (c *RacingAPIClient) FetchResults(ctx context.Context, date time.Time) ([]models.ResultRecord, error) {
	start := time.Now()
	day := date.Format(dateLayout)

	var payload []RacingAPIResult
	if err := c.httpClient.GetJSON(ctx, c.baseURL, "/results", url.Values{"date": {day}}, c.apiKey, &payload); err != nil {
		observeFetch(c.logger, c.name, "results", day, 0, start, err)
		return nil, err
	}

	var records []models.ResultRecord
	for _, race := range payload {
		for _, p := range race.Placings {
			sp, err := parsePrice(p.SP)
			if err != nil {
				// A bad SP should not cost us the finishing position
				c.logger.WithError(err).WithField("horse_name", p.Name).Warn("Ignoring unparseable starting price")
				sp = nil
			}
			records = append(records, models.ResultRecord{
				Provider:          c.name,
				RaceID:            race.RaceID,
				RunnerID:          p.RunnerID,
				Track:             race.Venue,
				RaceNumber:        race.RaceNumber,
				HorseName:         p.Name,
				TabNumber:         p.TabNo,
				FinishingPosition: p.Position,
				StartingPrice:     sp,
				MarginToWinner:    p.Margin,
			})
		}
	}

	observeFetch(c.logger, c.name, "results", day, len(records), start, nil)
	return records, nil
}

// FetchWeather retrieves weather samples for races run between from and to
func (c *RacingAPIClient) FetchWeather(ctx context.Context, from, to time.Time) ([]models.WeatherSample, error) {
	start := time.Now()
	scope := from.Format(dateLayout) + ".." + to.Format(dateLayout)
	query := url.Values{"from": {from.Format(dateLayout)}, "to": {to.Format(dateLayout)}}

	var payload []RacingAPIWeather
	if err := c.httpClient.GetJSON(ctx, c.baseURL, "/weather", query, c.apiKey, &payload); err != nil {
		observeFetch(c.logger, c.name, "weather", scope, 0, start, err)
		return nil, err
	}

	samples := make([]models.WeatherSample, 0, len(payload))
	for _, w := range payload {
		d, err := time.Parse(dateLayout, w.Date)
		if err != nil {
			c.logger.WithError(err).WithField("date", w.Date).Warn("Skipping weather row with bad date")
			continue
		}
		samples = append(samples, models.WeatherSample{
			RaceDate:   d,
			Track:      w.Venue,
			RaceNumber: w.RaceNumber,
			Observation: models.WeatherObservation{
				Temperature:   w.Temperature,
				WindSpeed:     w.WindSpeed,
				Humidity:      w.Humidity,
				Precipitation: w.Precipitation,
			},
			Outcome: models.RaceOutcome{
				WinningTime:   w.WinningTime,
				WinningMargin: w.WinningMargin,
			},
		})
	}

	observeFetch(c.logger, c.name, "weather", scope, len(samples), start, nil)
	return samples, nil
}

func racePath(key models.RaceKey, leaf string) string {
	return fmt.Sprintf("/meetings/%s/%s/races/%d/%s",
		key.Date.Format(dateLayout), url.PathEscape(key.Track), key.RaceNumber, leaf)
}

// parsePrice reads a decimal odds string. Empty or missing prices are nil;
// anything that is not a positive number is an error.
func parsePrice(s *string) (*float64, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("price %s is not positive", d)
	}
	f := d.InexactFloat64()
	return &f, nil
}
