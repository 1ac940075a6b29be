package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/models"
)

// RatingsFeedClient fetches model ratings and rated prices. The feed knows
// runners by name and saddle cloth only; it has no shared runner ids.
type RatingsFeedClient struct {
	name       models.Provider
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logger.FetchLogger
}

// RatingsFeedResponse is the envelope returned by the ratings endpoint
type RatingsFeedResponse struct {
	Meeting string             `json:"meeting"`
	Race    int                `json:"race"`
	Ratings []RatingsFeedEntry `json:"ratings"`
}

// RatingsFeedEntry is one rated runner
type RatingsFeedEntry struct {
	Horse      string   `json:"horse"`
	Tab        *int     `json:"tab"`
	Rating     *float64 `json:"rating"`
	RatedPrice *string  `json:"rated_price"`
}

// NewRatingsFeedClient creates a new ratings feed client
func NewRatingsFeedClient(name string, httpClient *RateLimitedHTTPClient, baseURL, apiKey string, fl *logger.FetchLogger) *RatingsFeedClient {
	if fl == nil {
		fl = logger.NewFetchLogger(logger.Discard())
	}
	return &RatingsFeedClient{
		name:       models.Provider(name),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     fl,
	}
}

// Name returns the provider name
func (c *RatingsFeedClient) Name() models.Provider {
	return c.name
}

// FetchRatings retrieves ratings for one race. The feed's own meeting name is
// kept on the records so the matcher can apply track aliases to it.
func (c *RatingsFeedClient) FetchRatings(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	start := time.Now()
	query := url.Values{
		"date":  {key.Date.Format(dateLayout)},
		"track": {key.Track},
		"race":  {strconv.Itoa(key.RaceNumber)},
	}

	var resp RatingsFeedResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL, "/ratings", query, c.apiKey, &resp); err != nil {
		observeFetch(c.logger, c.name, "ratings", key.String(), 0, start, err)
		return nil, err
	}

	track := resp.Meeting
	if track == "" {
		track = key.Track
	}
	race := resp.Race
	if race == 0 {
		race = key.RaceNumber
	}

	records := make([]models.RawRunnerRecord, 0, len(resp.Ratings))
	for _, r := range resp.Ratings {
		price, err := parsePrice(r.RatedPrice)
		if err != nil {
			err = NewDataSourceError(string(c.name), ErrCodeInvalidData, fmt.Sprintf("rated price for %s", r.Horse), err)
			observeFetch(c.logger, c.name, "ratings", key.String(), 0, start, err)
			return nil, err
		}
		records = append(records, models.RawRunnerRecord{
			Provider:   c.name,
			Track:      track,
			RaceNumber: race,
			HorseName:  r.Horse,
			TabNumber:  r.Tab,
			Rating:     r.Rating,
			Price:      price,
		})
	}

	observeFetch(c.logger, c.name, "ratings", key.String(), len(records), start, nil)
	return records, nil
}
