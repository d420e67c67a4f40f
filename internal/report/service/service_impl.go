package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/revlytic/revlytic/internal/clock"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	obsmetrics "github.com/revlytic/revlytic/internal/observability/metrics"
	"github.com/revlytic/revlytic/internal/orgcontext"
	paymentdomain "github.com/revlytic/revlytic/internal/payment/domain"
	reportdomain "github.com/revlytic/revlytic/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const historicalMonths = 12

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Metrics  metricsdomain.Service
	Payments paymentdomain.Service
	Obs      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	metrics  metricsdomain.Service
	payments paymentdomain.Service
	obs      *obsmetrics.Metrics

	mu      sync.Mutex
	entropy *rand.Rand
}

func NewService(p Params) reportdomain.Service {
	return &Service{
		log:      p.Log.Named("report.service"),
		clock:    p.Clock,
		metrics:  p.Metrics,
		payments: p.Payments,
		obs:      p.Obs,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) GenerateMetricsReport(ctx context.Context) (reportdomain.Report, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return reportdomain.Report{}, reportdomain.ErrInvalidOrganization
	}

	now := s.clock.Now()

	snapshot, err := s.metrics.GetAllMetrics(ctx, now)
	if err != nil {
		return reportdomain.Report{}, err
	}

	historical, err := s.metrics.GetHistoricalData(ctx, historicalMonths)
	if err != nil {
		return reportdomain.Report{}, err
	}

	revenue, err := s.payments.RevenueTotal(ctx, paymentdomain.RevenueTotalRequest{
		From: now.AddDate(0, -historicalMonths, 0),
		To:   now,
	})
	if err != nil {
		return reportdomain.Report{}, err
	}

	data, err := render(reportdomain.Snapshot{
		OrgID:        orgID.String(),
		GeneratedAt:  now,
		Metrics:      snapshot,
		Historical:   historical,
		RevenueTotal: revenue,
	})
	if err != nil {
		return reportdomain.Report{}, err
	}

	report := reportdomain.Report{
		ID:          s.newReportID(now),
		GeneratedAt: now,
		ContentType: "application/pdf",
		Data:        data,
	}

	if s.obs != nil {
		s.obs.RecordReportGenerated(ctx)
	}
	s.log.Info("metrics report generated",
		zap.String("report_id", report.ID),
		zap.Int("bytes", len(report.Data)),
	)

	return report, nil
}

func (s *Service) newReportID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}
