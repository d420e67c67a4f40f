package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/revlytic/revlytic/internal/orgcontext"
	"github.com/revlytic/revlytic/internal/ratelimit"
)

const HeaderOrg = "X-Org-ID"

// OrgContext resolves the acting organization from the X-Org-ID header and
// stores it on the request context. Requests without a resolvable org are
// rejected before reaching any handler.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))

		var orgID int64
		switch {
		case raw != "":
			parsed, err := snowflake.ParseString(raw)
			if err != nil {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			orgID = int64(parsed)
		case s.cfg.DefaultOrgID != 0:
			orgID = s.cfg.DefaultOrgID
		default:
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (s *Server) RefreshRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.limiter.AllowRefresh(c.Request.Context(), orgID.String())
		if err != nil {
			// Redis being down must not take the API with it.
			c.Next()
			return
		}
		s.recordRateLimit(c, "metrics_refresh", result.Allowed)
		if !result.Allowed {
			writeRateLimitHeaders(c, result)
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func (s *Server) InsightsRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.limiter.AllowInsights(c.Request.Context(), orgID.String())
		if err != nil {
			c.Next()
			return
		}
		s.recordRateLimit(c, "insights", result.Allowed)
		if !result.Allowed {
			writeRateLimitHeaders(c, result)
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func (s *Server) recordRateLimit(c *gin.Context, endpoint string, allowed bool) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordRateLimit(c.Request.Context(), endpoint, allowed)
}

func writeRateLimitHeaders(c *gin.Context, result *ratelimit.RateLimitResult) {
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
	if retryAfter := result.RetryAfter; retryAfter > 0 {
		c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter/time.Second)+1))
	}
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))
}
