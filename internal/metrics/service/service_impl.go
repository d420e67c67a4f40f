package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/cache"
	"github.com/revlytic/revlytic/internal/clock"
	"github.com/revlytic/revlytic/internal/config"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	obsmetrics "github.com/revlytic/revlytic/internal/observability/metrics"
	"github.com/revlytic/revlytic/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Cache     *cache.MetricsCache
	Analytics *config.AnalyticsConfigHolder
	Obs       *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cache     *cache.MetricsCache
	analytics *config.AnalyticsConfigHolder
	obs       *obsmetrics.Metrics
}

func NewService(p Params) metricsdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("metrics.service"),
		clock:     p.Clock,
		cache:     p.Cache,
		analytics: p.Analytics,
		obs:       p.Obs,
	}
}

func (s *Service) CalculateMRR(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidOrganization
	}
	if date.IsZero() {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidDate
	}

	key := cache.Key{Metric: metricsdomain.MetricMRR, OrgID: orgID, Period: monthKey(date)}
	return cache.GetOrCompute(s.cache, key, func() (metricsdomain.MetricValue, error) {
		return s.computeMRR(ctx, orgID, date)
	})
}

func (s *Service) computeMRR(ctx context.Context, orgID snowflake.ID, date time.Time) (metricsdomain.MetricValue, error) {
	s.recordComputation(ctx, metricsdomain.MetricMRR)

	current, err := s.loadMRR(ctx, orgID, endOfMonth(date))
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}
	previous, err := s.loadMRR(ctx, orgID, endOfMonth(previousMonth(date)))
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}

	return metricsdomain.MetricValue{
		Current:  current,
		Previous: previous,
		Growth:   growthRate(current, previous),
	}, nil
}

func (s *Service) CalculateARR(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	mrr, err := s.CalculateMRR(ctx, date)
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}

	// ARR is MRR annualized; growth carries over unchanged.
	return metricsdomain.MetricValue{
		Current:  mrr.Current * 12,
		Previous: mrr.Previous * 12,
		Growth:   mrr.Growth,
	}, nil
}

func (s *Service) CalculateChurnRate(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidOrganization
	}
	if date.IsZero() {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidDate
	}

	key := cache.Key{Metric: metricsdomain.MetricChurnRate, OrgID: orgID, Period: monthKey(date)}
	return cache.GetOrCompute(s.cache, key, func() (metricsdomain.MetricValue, error) {
		return s.computeChurnRate(ctx, orgID, date)
	})
}

func (s *Service) computeChurnRate(ctx context.Context, orgID snowflake.ID, date time.Time) (metricsdomain.MetricValue, error) {
	s.recordComputation(ctx, metricsdomain.MetricChurnRate)

	current, err := s.loadChurnRate(ctx, orgID, date)
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}
	previous, err := s.loadChurnRate(ctx, orgID, previousMonth(date))
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}

	// Churn growth is a point delta, not percent-of-percent.
	return metricsdomain.MetricValue{
		Current:  current,
		Previous: previous,
		Growth:   current - previous,
	}, nil
}

func (s *Service) CalculateLTV(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidOrganization
	}
	if date.IsZero() {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidDate
	}

	key := cache.Key{Metric: metricsdomain.MetricLTV, OrgID: orgID, Period: monthKey(date)}
	return cache.GetOrCompute(s.cache, key, func() (metricsdomain.MetricValue, error) {
		return s.computeLTV(ctx, orgID)
	})
}

// computeLTV reads the active customer base and churn rate as of the
// clock's current month, whatever reference date the caller asked for.
// Inherited approximation: there is no per-month churn history to divide
// a historical ARPU by, so every period reports today's LTV.
func (s *Service) computeLTV(ctx context.Context, orgID snowflake.ID) (metricsdomain.MetricValue, error) {
	s.recordComputation(ctx, metricsdomain.MetricLTV)

	now := s.clock.Now()
	mrr, err := s.loadMRR(ctx, orgID, endOfMonth(now))
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}
	activeCount, err := s.loadActiveCount(ctx, orgID, endOfMonth(now))
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}
	churnRate, err := s.loadChurnRate(ctx, orgID, now)
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}

	var arpu float64
	if activeCount > 0 {
		arpu = mrr / float64(activeCount)
	}

	var ltv float64
	churnFraction := churnRate / 100
	if churnFraction > 0 {
		ltv = arpu / churnFraction
	}

	// Previous and growth stay zero: a trailing LTV needs a churn history
	// the month snapshot does not carry.
	return metricsdomain.MetricValue{Current: ltv}, nil
}

func (s *Service) CalculateCAC(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidOrganization
	}
	if date.IsZero() {
		return metricsdomain.MetricValue{}, metricsdomain.ErrInvalidDate
	}

	key := cache.Key{Metric: metricsdomain.MetricCAC, OrgID: orgID, Period: monthKey(date)}
	return cache.GetOrCompute(s.cache, key, func() (metricsdomain.MetricValue, error) {
		return s.computeCAC(ctx, orgID, date)
	})
}

func (s *Service) computeCAC(ctx context.Context, orgID snowflake.ID, date time.Time) (metricsdomain.MetricValue, error) {
	s.recordComputation(ctx, metricsdomain.MetricCAC)

	var row struct {
		Total int64
		Count int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(acquisition_cost), 0) AS total, COUNT(*) AS count
		 FROM customers
		 WHERE org_id = ? AND start_date >= ? AND start_date <= ?`,
		orgID,
		startOfMonth(date),
		endOfMonth(date),
	).Scan(&row).Error
	if err != nil {
		return metricsdomain.MetricValue{}, err
	}

	var cac float64
	if row.Count > 0 {
		cac = float64(row.Total) / float64(row.Count)
	}

	return metricsdomain.MetricValue{Current: cac}, nil
}

func (s *Service) GetAllMetrics(ctx context.Context, date time.Time) (map[string]metricsdomain.MetricValue, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, metricsdomain.ErrInvalidOrganization
	}
	if date.IsZero() {
		return nil, metricsdomain.ErrInvalidDate
	}

	var mrr, arr, churn, ltv, cac metricsdomain.MetricValue

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mrr, err = s.CalculateMRR(gctx, date)
		return err
	})
	g.Go(func() (err error) {
		arr, err = s.CalculateARR(gctx, date)
		return err
	})
	g.Go(func() (err error) {
		churn, err = s.CalculateChurnRate(gctx, date)
		return err
	})
	g.Go(func() (err error) {
		ltv, err = s.CalculateLTV(gctx, date)
		return err
	})
	g.Go(func() (err error) {
		cac, err = s.CalculateCAC(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[string]metricsdomain.MetricValue{
		metricsdomain.MetricMRR:       mrr,
		metricsdomain.MetricARR:       arr,
		metricsdomain.MetricChurnRate: churn,
		metricsdomain.MetricLTV:       ltv,
		metricsdomain.MetricCAC:       cac,
	}, nil
}

func (s *Service) GetHistoricalData(ctx context.Context, months int) ([]metricsdomain.HistoricalPoint, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, metricsdomain.ErrInvalidOrganization
	}
	months, err := s.clampMonths(months)
	if err != nil {
		return nil, err
	}

	anchor := startOfMonth(s.clock.Now())
	points := make([]metricsdomain.HistoricalPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := anchor.AddDate(0, -i, 0)

		snapshot, err := s.GetAllMetrics(ctx, month)
		if err != nil {
			return nil, err
		}

		points = append(points, metricsdomain.HistoricalPoint{
			Month:     monthKey(month),
			MRR:       snapshot[metricsdomain.MetricMRR].Current,
			ARR:       snapshot[metricsdomain.MetricARR].Current,
			ChurnRate: snapshot[metricsdomain.MetricChurnRate].Current,
			LTV:       snapshot[metricsdomain.MetricLTV].Current,
			CAC:       snapshot[metricsdomain.MetricCAC].Current,
		})
	}

	return points, nil
}

func (s *Service) GetCustomerGrowth(ctx context.Context, months int) ([]metricsdomain.CustomerGrowthPoint, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, metricsdomain.ErrInvalidOrganization
	}
	months, err := s.clampMonths(months)
	if err != nil {
		return nil, err
	}

	anchor := startOfMonth(s.clock.Now())
	points := make([]metricsdomain.CustomerGrowthPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := anchor.AddDate(0, -i, 0)

		key := cache.Key{Metric: "customer_growth", OrgID: orgID, Period: monthKey(month)}
		point, err := cache.GetOrCompute(s.cache, key, func() (metricsdomain.CustomerGrowthPoint, error) {
			return s.loadCustomerGrowth(ctx, orgID, month)
		})
		if err != nil {
			return nil, err
		}

		points = append(points, point)
	}

	return points, nil
}

// ClearCache drops every cached result for every org.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.log.Info("metrics cache cleared")
}

func (s *Service) loadMRR(ctx context.Context, orgID snowflake.ID, asOf time.Time) (float64, error) {
	var row struct {
		Value float64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(
			CASE
				WHEN p.id IS NOT NULL THEN
					CASE p.billing_cycle
						WHEN 'quarterly' THEN p.price / 3.0
						WHEN 'yearly' THEN p.price / 12.0
						ELSE p.price * 1.0
					END
				ELSE c.monthly_revenue * 1.0
			END
		), 0) AS value
		FROM customers c
		LEFT JOIN plans p ON p.org_id = c.org_id AND p.id = c.plan_id
		WHERE c.org_id = ? AND c.status = 'active' AND c.start_date <= ?`,
		orgID,
		asOf,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Value, nil
}

func (s *Service) loadActiveCount(ctx context.Context, orgID snowflake.ID, asOf time.Time) (int64, error) {
	var row struct {
		Count int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS count
		 FROM customers
		 WHERE org_id = ? AND status = 'active' AND start_date <= ?`,
		orgID,
		asOf,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

func (s *Service) loadChurnRate(ctx context.Context, orgID snowflake.ID, date time.Time) (float64, error) {
	monthStart := startOfMonth(date)
	monthEnd := endOfMonth(date)

	var row struct {
		AtStart int64
		Churned int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN status = 'active' AND start_date < ? THEN 1 ELSE 0 END), 0) AS at_start,
			COALESCE(SUM(CASE WHEN status = 'churned' AND churn_date >= ? AND churn_date <= ? THEN 1 ELSE 0 END), 0) AS churned
		 FROM customers
		 WHERE org_id = ?`,
		monthStart,
		monthStart,
		monthEnd,
		orgID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}

	if row.AtStart == 0 {
		return 0, nil
	}
	return float64(row.Churned) / float64(row.AtStart) * 100, nil
}

func (s *Service) loadCustomerGrowth(ctx context.Context, orgID snowflake.ID, month time.Time) (metricsdomain.CustomerGrowthPoint, error) {
	monthEnd := endOfMonth(month)

	var row struct {
		Total   int64
		Active  int64
		Churned int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN churn_date IS NULL OR churn_date > ? THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN churn_date IS NOT NULL AND churn_date <= ? THEN 1 ELSE 0 END), 0) AS churned
		 FROM customers
		 WHERE org_id = ? AND start_date <= ?`,
		monthEnd,
		monthEnd,
		orgID,
		monthEnd,
	).Scan(&row).Error
	if err != nil {
		return metricsdomain.CustomerGrowthPoint{}, err
	}

	return metricsdomain.CustomerGrowthPoint{
		Month:   monthKey(month),
		Total:   row.Total,
		Active:  row.Active,
		Churned: row.Churned,
	}, nil
}

func (s *Service) clampMonths(months int) (int, error) {
	if months <= 0 {
		return 0, metricsdomain.ErrInvalidMonths
	}
	max := s.analytics.Get().MaxHistoricalMonths
	if max > 0 && months > max {
		months = max
	}
	return months, nil
}

func (s *Service) recordComputation(ctx context.Context, metric string) {
	if s.obs != nil {
		s.obs.RecordMetricComputation(ctx, metric)
	}
}

// growthRate is the month-over-month growth in percent, 0 when there is
// no previous value to compare against.
func growthRate(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func monthKey(value time.Time) string {
	return value.UTC().Format("2006-01")
}

func startOfMonth(value time.Time) time.Time {
	value = value.UTC()
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// previousMonth returns the first day of the calendar month before the
// one containing value. Subtracting a month from the raw date is wrong
// on day 29-31: Go normalizes the overflow back into the same month.
func previousMonth(value time.Time) time.Time {
	return startOfMonth(value).AddDate(0, -1, 0)
}

func endOfMonth(value time.Time) time.Time {
	return startOfMonth(value).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
