package service

import (
	"context"
	"fmt"

	"github.com/revlytic/revlytic/internal/clock"
	"github.com/revlytic/revlytic/internal/config"
	"github.com/revlytic/revlytic/internal/insights/domain"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	obsmetrics "github.com/revlytic/revlytic/internal/observability/metrics"
	"github.com/revlytic/revlytic/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const growthMonths = 6

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Metrics   metricsdomain.Service
	Provider  domain.Provider
	Analytics *config.AnalyticsConfigHolder
	Obs       *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	metrics   metricsdomain.Service
	provider  domain.Provider
	analytics *config.AnalyticsConfigHolder
	obs       *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("insights.service"),
		clock:     p.Clock,
		metrics:   p.Metrics,
		provider:  p.Provider,
		analytics: p.Analytics,
		obs:       p.Obs,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Response{}, domain.ErrInvalidOrganization
	}

	now := s.clock.Now()

	metrics, err := s.metrics.GetAllMetrics(ctx, now)
	if err != nil {
		return domain.Response{}, err
	}
	growth, err := s.metrics.GetCustomerGrowth(ctx, growthMonths)
	if err != nil {
		return domain.Response{}, err
	}

	snapshot := domain.Snapshot{
		OrgID:       orgID.String(),
		GeneratedAt: now,
		Metrics:     metrics,
		Growth:      growth,
	}

	insights, err := s.provider.Analyze(ctx, snapshot)
	source := domain.SourceRemote
	if err != nil || len(insights) == 0 {
		if err != nil {
			s.log.Warn("remote insights unavailable, using rule fallback", zap.Error(err))
		}
		insights = s.ruleInsights(metrics)
		source = domain.SourceRules
	}

	if s.obs != nil {
		s.obs.RecordInsightsRequest(ctx, source)
	}

	return domain.Response{
		Source:      source,
		GeneratedAt: now,
		Insights:    insights,
	}, nil
}

// ruleInsights produces deterministic insight strings from thresholds in
// the analytics config. It is the offline fallback, not an LLM substitute.
func (s *Service) ruleInsights(metrics map[string]metricsdomain.MetricValue) []string {
	cfg := s.analytics.Get()
	insights := make([]string, 0, 4)

	mrr := metrics[metricsdomain.MetricMRR]
	switch {
	case mrr.Growth > 0:
		insights = append(insights, fmt.Sprintf("MRR grew %.1f%% month over month.", mrr.Growth))
	case mrr.Growth < 0:
		insights = append(insights, fmt.Sprintf("MRR declined %.1f%% month over month; review churn and downgrades.", -mrr.Growth))
	default:
		insights = append(insights, "MRR is flat month over month.")
	}

	churn := metrics[metricsdomain.MetricChurnRate]
	if churn.Current > cfg.ChurnAlertPercent {
		insights = append(insights, fmt.Sprintf("Churn rate %.1f%% is above the %.1f%% alert threshold.", churn.Current, cfg.ChurnAlertPercent))
	}

	ltv := metrics[metricsdomain.MetricLTV]
	cac := metrics[metricsdomain.MetricCAC]
	if cac.Current > 0 {
		ratio := ltv.Current / cac.Current
		if ratio < cfg.LTVCACFloor {
			insights = append(insights, fmt.Sprintf("LTV:CAC ratio %.1f is below the %.1f floor; acquisition spend may not pay back.", ratio, cfg.LTVCACFloor))
		} else {
			insights = append(insights, fmt.Sprintf("LTV:CAC ratio %.1f is healthy.", ratio))
		}
	}

	return insights
}
