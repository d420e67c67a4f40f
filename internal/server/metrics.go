package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	"github.com/revlytic/revlytic/internal/orgcontext"
)

const defaultHistoryMonths = 12

func (s *Server) GetMRR(c *gin.Context) {
	s.serveMetric(c, s.metricsSvc.CalculateMRR)
}

func (s *Server) GetARR(c *gin.Context) {
	s.serveMetric(c, s.metricsSvc.CalculateARR)
}

func (s *Server) GetChurnRate(c *gin.Context) {
	s.serveMetric(c, s.metricsSvc.CalculateChurnRate)
}

func (s *Server) GetLTV(c *gin.Context) {
	s.serveMetric(c, s.metricsSvc.CalculateLTV)
}

func (s *Server) GetCAC(c *gin.Context) {
	s.serveMetric(c, s.metricsSvc.CalculateCAC)
}

func (s *Server) serveMetric(c *gin.Context, calc func(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error)) {
	date, err := parseRequiredDate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := calc(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAllMetrics(c *gin.Context) {
	date, err := parseRequiredDate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.metricsSvc.GetAllMetrics(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetHistoricalData(c *gin.Context) {
	months, err := parseMonths(c, defaultHistoryMonths)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.metricsSvc.GetHistoricalData(c.Request.Context(), months)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerGrowth(c *gin.Context) {
	months, err := parseMonths(c, defaultHistoryMonths)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.metricsSvc.GetCustomerGrowth(c.Request.Context(), months)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RefreshMetrics drops every cached metric so the next reads recompute. The
// distributed lock keeps concurrent refreshes from stampeding the database.
func (s *Server) RefreshMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	if s.limiter != nil && s.limiter.Enabled() {
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		token, locked, err := s.limiter.TryLockRefresh(ctx, orgID.String())
		if err == nil {
			if !locked {
				AbortWithError(c, ErrRateLimited)
				return
			}
			defer func() {
				_ = s.limiter.ReleaseRefresh(ctx, orgID.String(), token)
			}()
		}
	}

	s.metricsSvc.ClearCache()

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"refreshed": true}})
}
