package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yourusername/racefuse/internal/config"
	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/metrics"
)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	RateLimit       float64 // requests per second
	Burst           int
	BreakerFailures uint32        // consecutive failures before the breaker opens
	BreakerTimeout  time.Duration // how long the breaker stays open
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    10 * time.Second,
		RateLimit:       10.0,
		Burst:           1,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// HTTPClientConfigFor derives client settings from a provider entry
func HTTPClientConfigFor(p config.ProviderConfig) HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = p.Timeout()
	if p.RetryAttempts > 0 {
		cfg.MaxRetries = p.RetryAttempts
	}
	if p.RequestsPerSecond > 0 {
		cfg.RateLimit = p.RequestsPerSecond
	}
	if p.Burst > 0 {
		cfg.Burst = p.Burst
	}
	return cfg
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a
// circuit breaker per provider
type RateLimitedHTTPClient struct {
	name    string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logger.FetchLogger
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(name string, cfg HTTPClientConfig, fl *logger.FetchLogger) *RateLimitedHTTPClient {
	if fl == nil {
		fl = logger.NewFetchLogger(logger.Discard())
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	// Retries are reported through the fetch logger instead
	retryClient.Logger = nil

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &RateLimitedHTTPClient{
		name:    name,
		client:  retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		logger:  fl,
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(breaker string, from, to gobreaker.State) {
			c.logger.LogBreakerStateChange(breaker, from.String(), to.String())
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(breaker)
			}
		},
	})

	return c
}

// Do executes an HTTP request with rate limiting and circuit breaker.
// Transport failures and exhausted retries count against the breaker; any
// response that made it back does not.
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		rreq, err := retryablehttp.FromRequest(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		return c.client.Do(rreq)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewDataSourceError(c.name, ErrCodeCircuitOpen, "provider unavailable", ErrCircuitOpen)
		}
		return nil, err
	}
	return out.(*http.Response), nil
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// GetJSON issues an authenticated GET against base+path and decodes the JSON
// body into out, mapping HTTP failures onto DataSourceError codes
func (c *RateLimitedHTTPClient) GetJSON(ctx context.Context, base, path string, query url.Values, apiKey string, out interface{}) error {
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewDataSourceError(c.name, ErrCodeNetworkError, "failed to create request", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		var dsErr DataSourceError
		if errors.As(err, &dsErr) {
			return dsErr
		}
		return NewDataSourceError(c.name, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(c.name, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(c.name, ErrCodeNotFound, path, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(c.name, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(c.name, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(c.name, ErrCodeInvalidData, "failed to parse response", err)
	}
	return nil
}

// BreakerState reports the circuit breaker state, e.g. "closed" or "open"
func (c *RateLimitedHTTPClient) BreakerState() string {
	return c.breaker.State().String()
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// Retry on network errors
			return true, err
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}
