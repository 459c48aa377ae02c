package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vista_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrors counts failed repository operations.
	DatabaseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vista_database_errors_total",
		Help: "Total number of failed database operations",
	}, []string{"operation", "table"})

	// AuthAttempts counts authentication outcomes (success, rejected, anonymous, error).
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vista_auth_attempts_total",
		Help: "Total number of authentication attempts by outcome",
	}, []string{"outcome"})

	// IdentityCacheLookups counts identity cache hits and misses.
	IdentityCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vista_identity_cache_lookups_total",
		Help: "Identity profile cache lookups by result",
	}, []string{"result"})

	// ExploreFeedSize observes the number of tracks returned by the explore feed.
	ExploreFeedSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vista_explore_feed_size",
		Help:    "Number of tracks returned per explore feed request",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	// ExploreDroppedTracks counts public tracks dropped because their owner is missing.
	ExploreDroppedTracks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vista_explore_dropped_tracks_total",
		Help: "Public tracks excluded from the explore feed because their owner could not be resolved",
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vista_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vista_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	}, []string{"resource"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
