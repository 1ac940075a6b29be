package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/config"
	"github.com/yourusername/racefuse/internal/logger"
)

// Sources is the set of provider clients built from configuration, grouped
// by the role each plays in reconciliation
type Sources struct {
	Entrants    EntrantSource
	Ratings     []RatingSource
	Markets     []MarketSource
	Scratchings ScratchingSource
	Results     ResultSource
	Weather     WeatherSource

	streams []*PriceStreamClient
	clients []*RateLimitedHTTPClient
}

// Streams returns the price streams that need a running connection
func (s *Sources) Streams() []*PriceStreamClient {
	return s.streams
}

// Close releases HTTP connections and closes price streams
func (s *Sources) Close() error {
	var firstErr error
	for _, st := range s.streams {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range s.clients {
		_ = c.Close()
	}
	return firstErr
}

// Factory creates provider clients based on configuration
type Factory struct {
	logger *logrus.Logger
	config *config.Config
	cache  *FetchCache
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, log *logrus.Logger) *Factory {
	if log == nil {
		log = logger.Discard()
	}
	return &Factory{
		logger: log,
		config: cfg,
		cache:  NewFetchCache(cfg.Cache.FetchTTL(), cfg.Cache.CleanupInterval(), logger.NewFetchLogger(log)),
	}
}

// Build creates every enabled provider. The backbone provider supplies the
// race card, scratchings, results and weather; every other provider is
// merged by type.
func (f *Factory) Build() (*Sources, error) {
	fl := logger.NewFetchLogger(f.logger)
	sources := &Sources{}
	backbone := f.config.Providers.Backbone

	for _, name := range config.EnabledProviders(f.config) {
		p, _ := f.config.Provider(name)

		switch p.Type {
		case config.ProviderTypeRacingAPI:
			httpClient := NewRateLimitedHTTPClient(p.Name, HTTPClientConfigFor(p), fl)
			sources.clients = append(sources.clients, httpClient)
			client := NewRacingAPIClient(p.Name, httpClient, p.BaseURL, p.APIKey, fl)
			if p.Name == backbone {
				sources.Entrants = NewCachedEntrantSource(client, f.cache)
				sources.Scratchings = client
				sources.Results = client
				sources.Weather = client
			} else {
				sources.Markets = append(sources.Markets, client)
			}

		case config.ProviderTypeRatingsFeed:
			httpClient := NewRateLimitedHTTPClient(p.Name, HTTPClientConfigFor(p), fl)
			sources.clients = append(sources.clients, httpClient)
			client := NewRatingsFeedClient(p.Name, httpClient, p.BaseURL, p.APIKey, fl)
			sources.Ratings = append(sources.Ratings, NewCachedRatingSource(client, f.cache))

		case config.ProviderTypePriceStream:
			stream := NewPriceStreamClient(p.Name, p.StreamURL, p.APIKey, fl)
			sources.streams = append(sources.streams, stream)
			sources.Markets = append(sources.Markets, stream)

		default:
			return nil, fmt.Errorf("unknown provider type %q for %s", p.Type, p.Name)
		}

		f.logger.WithFields(logrus.Fields{"provider": p.Name, "type": p.Type}).Info("Created data source")
	}

	if sources.Entrants == nil {
		_ = sources.Close()
		return nil, fmt.Errorf("backbone provider %q is not enabled", backbone)
	}
	return sources, nil
}
