package datasource

import (
	"context"
	"slices"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/metrics"
	"github.com/yourusername/racefuse/internal/models"
)

// FetchCache keeps recent provider responses in memory so that a meeting
// reconciled several times in a short window does not refetch race cards
type FetchCache struct {
	cache  *cache.Cache
	ttl    time.Duration
	logger *logger.FetchLogger
}

// NewFetchCache creates a new fetch cache
func NewFetchCache(ttl, cleanup time.Duration, fl *logger.FetchLogger) *FetchCache {
	if fl == nil {
		fl = logger.NewFetchLogger(logger.Discard())
	}
	return &FetchCache{
		cache:  cache.New(ttl, cleanup),
		ttl:    ttl,
		logger: fl,
	}
}

// Flush drops every cached response
func (fc *FetchCache) Flush() {
	fc.cache.Flush()
}

// ItemCount returns the number of cached responses, expired ones included
func (fc *FetchCache) ItemCount() int {
	return fc.cache.ItemCount()
}

func cachedSlice[E any](fc *FetchCache, provider models.Provider, kind, scope string, fetch func() ([]E, error)) ([]E, error) {
	key := string(provider) + ":" + kind + ":" + scope
	if v, found := fc.cache.Get(key); found {
		if hit, ok := v.([]E); ok {
			metrics.RecordCacheHit(string(provider), kind)
			fc.logger.LogFetch(string(provider), kind, scope, len(hit), 0, true)
			return slices.Clone(hit), nil
		}
	}

	out, err := fetch()
	if err != nil {
		return nil, err
	}
	fc.cache.Set(key, slices.Clone(out), fc.ttl)
	return out, nil
}

// CachedEntrantSource wraps an EntrantSource with the fetch cache
type CachedEntrantSource struct {
	inner EntrantSource
	cache *FetchCache
}

// NewCachedEntrantSource creates a cached entrant source
func NewCachedEntrantSource(inner EntrantSource, fc *FetchCache) *CachedEntrantSource {
	return &CachedEntrantSource{inner: inner, cache: fc}
}

// Name returns the wrapped provider's name
func (c *CachedEntrantSource) Name() models.Provider {
	return c.inner.Name()
}

// FetchMeetings retrieves meetings with caching
func (c *CachedEntrantSource) FetchMeetings(ctx context.Context, date time.Time) ([]models.Meeting, error) {
	return cachedSlice(c.cache, c.inner.Name(), "meetings", date.Format(dateLayout), func() ([]models.Meeting, error) {
		return c.inner.FetchMeetings(ctx, date)
	})
}

// FetchEntrants retrieves a race field with caching
func (c *CachedEntrantSource) FetchEntrants(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	return cachedSlice(c.cache, c.inner.Name(), "entrants", key.String(), func() ([]models.RawRunnerRecord, error) {
		return c.inner.FetchEntrants(ctx, key)
	})
}

// CachedRatingSource wraps a RatingSource with the fetch cache
type CachedRatingSource struct {
	inner RatingSource
	cache *FetchCache
}

// NewCachedRatingSource creates a cached rating source
func NewCachedRatingSource(inner RatingSource, fc *FetchCache) *CachedRatingSource {
	return &CachedRatingSource{inner: inner, cache: fc}
}

// Name returns the wrapped provider's name
func (c *CachedRatingSource) Name() models.Provider {
	return c.inner.Name()
}

// FetchRatings retrieves ratings with caching
func (c *CachedRatingSource) FetchRatings(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	return cachedSlice(c.cache, c.inner.Name(), "ratings", key.String(), func() ([]models.RawRunnerRecord, error) {
		return c.inner.FetchRatings(ctx, key)
	})
}

// observeFetch logs and records metrics for one provider call
func observeFetch(fl *logger.FetchLogger, provider models.Provider, kind, scope string, records int, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordFetch(string(provider), kind, "failure", elapsed.Seconds())
		fl.LogFetchError(string(provider), kind, scope, err)
		return
	}
	metrics.RecordFetch(string(provider), kind, "success", elapsed.Seconds())
	fl.LogFetch(string(provider), kind, scope, records, float64(elapsed.Milliseconds()), false)
}
