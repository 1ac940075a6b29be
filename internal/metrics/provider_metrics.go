// Package metrics defines upstream provider metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ProviderFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_fetches_total",
		Help:      "Provider fetches by provider, kind and status",
	}, []string{"provider", "kind", "status"})

	ProviderFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_fetch_duration_seconds",
		Help:      "Latency of provider fetches in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider", "kind"})

	ProviderCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_cache_hits_total",
		Help:      "Provider fetches served from the fetch cache",
	}, []string{"provider", "kind"})

	CircuitBreakerTripsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Times a provider circuit breaker opened",
	}, []string{"provider"})

	PriceStreamMarkets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "price_stream_markets",
		Help:      "Markets currently held by a price stream",
	}, []string{"provider"})
)

// RecordFetch records a provider fetch.
// status should be one of: "success", "failure"
func RecordFetch(provider, kind, status string, durationSeconds float64) {
	ProviderFetchesTotal.WithLabelValues(provider, kind, status).Inc()
	ProviderFetchDuration.WithLabelValues(provider, kind).Observe(durationSeconds)
}

// RecordCacheHit records a fetch served from cache.
func RecordCacheHit(provider, kind string) {
	ProviderCacheHitsTotal.WithLabelValues(provider, kind).Inc()
}

// RecordCircuitBreakerTrip records a breaker opening.
func RecordCircuitBreakerTrip(provider string) {
	CircuitBreakerTripsTotal.WithLabelValues(provider).Inc()
}

// UpdateStreamMarkets sets how many markets a price stream holds.
func UpdateStreamMarkets(provider string, n int) {
	PriceStreamMarkets.WithLabelValues(provider).Set(float64(n))
}
