package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/revlytic/revlytic/internal/clock"
)

// DefaultMetricsTTL bounds how stale a served metric may be.
const DefaultMetricsTTL = 5 * time.Minute

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revlytic_metrics_cache_hits_total",
		Help: "Metric results served from cache.",
	}, []string{"metric"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revlytic_metrics_cache_misses_total",
		Help: "Metric results recomputed on cache miss.",
	}, []string{"metric"})
)

// Key identifies one cached metric result. Structured on purpose so a
// collision between orgs or periods cannot happen by string formatting.
type Key struct {
	Metric string
	OrgID  snowflake.ID
	Period string
}

// MetricsCache stores computed metric results with a TTL.
type MetricsCache struct {
	store Cache[Key, any]
	ttl   time.Duration
}

// NewMetricsCache returns a metrics result cache with the given TTL.
// A non-positive ttl falls back to DefaultMetricsTTL.
func NewMetricsCache(clk clock.Clock, ttl time.Duration) *MetricsCache {
	if ttl <= 0 {
		ttl = DefaultMetricsTTL
	}
	return &MetricsCache{
		store: NewTTLCacheWithNow[Key, any](clk.Now),
		ttl:   ttl,
	}
}

// GetOrCompute returns the cached value for key when fresh; otherwise it
// runs compute, stores the result, and returns it. A compute error is
// returned as-is and nothing is stored. Concurrent recomputation of the
// same stale key is tolerated; the computations are pure reads.
func (c *MetricsCache) GetOrCompute(key Key, compute func() (any, error)) (any, error) {
	if value, ok := c.store.Get(key); ok {
		cacheHits.WithLabelValues(key.Metric).Inc()
		return value, nil
	}
	cacheMisses.WithLabelValues(key.Metric).Inc()

	value, err := compute()
	if err != nil {
		return nil, err
	}
	c.store.Set(key, value, c.ttl)
	return value, nil
}

// Clear drops every cached entry for every org.
func (c *MetricsCache) Clear() {
	c.store.Clear()
}

// Len reports the number of stored entries, expired ones included.
func (c *MetricsCache) Len() int {
	return c.store.Len()
}

// GetOrCompute is the typed wrapper over MetricsCache.GetOrCompute.
func GetOrCompute[T any](c *MetricsCache, key Key, compute func() (T, error)) (T, error) {
	var zero T
	value, err := c.GetOrCompute(key, func() (any, error) {
		return compute()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return compute()
	}
	return typed, nil
}
