package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/revlytic/revlytic/internal/config"
)

const (
	keyMetricsRefreshOrg = "metrics:refresh:org:%s"
	keyInsightsOrg       = "insights:org:%s"
)

// Per-org budgets for the expensive endpoints. Refresh empties the whole
// metric cache, insights fans out to the external service.
const (
	refreshRate   = 1.0 / 30
	refreshBurst  = 2
	insightsRate  = 0.2
	insightsBurst = 5
	refreshLockTTL = 10 * time.Second
)

// APILimiter guards the cache-refresh and insights endpoints. A nil
// limiter (no redis configured) allows everything.
type APILimiter struct {
	enabled bool

	bucket *TokenBucket
	lock   *refreshLock
}

func NewAPILimiter(cfg config.Config) *APILimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &APILimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		lock:    newRefreshLock(client, refreshLockTTL),
	}
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *APILimiter) AllowRefresh(ctx context.Context, orgID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyMetricsRefreshOrg, strings.TrimSpace(orgID)), refreshRate, refreshBurst)
}

func (l *APILimiter) AllowInsights(ctx context.Context, orgID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInsightsOrg, strings.TrimSpace(orgID)), insightsRate, insightsBurst)
}

// TryLockRefresh serializes concurrent refreshes for one org across
// instances.
func (l *APILimiter) TryLockRefresh(ctx context.Context, orgID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.acquire(ctx, strings.TrimSpace(orgID))
}

func (l *APILimiter) ReleaseRefresh(ctx context.Context, orgID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.release(ctx, strings.TrimSpace(orgID), token)
}
