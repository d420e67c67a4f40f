package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/revlytic/revlytic/internal/cache"
	"github.com/revlytic/revlytic/internal/clock"
	"github.com/revlytic/revlytic/internal/config"
	customerdomain "github.com/revlytic/revlytic/internal/customer/domain"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	"github.com/revlytic/revlytic/internal/orgcontext"
	plandomain "github.com/revlytic/revlytic/internal/plan/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func setupMetricsService(t *testing.T) (metricsdomain.Service, *gorm.DB, *clock.FakeClock) {
	return setupMetricsServiceWithConfig(t, config.DefaultAnalyticsConfig())
}

func setupMetricsServiceWithConfig(t *testing.T, analyticsCfg config.AnalyticsConfig) (metricsdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&plandomain.Plan{}, &customerdomain.Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFakeClock(testNow)
	holder := config.NewStaticAnalyticsConfigHolder(analyticsCfg)

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     clk,
		Cache:     cache.NewMetricsCache(clk, analyticsCfg.CacheTTL()),
		Analytics: holder,
	})

	return svc, db, clk
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func seedPlan(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, price int64, cycle plandomain.BillingCycle) snowflake.ID {
	t.Helper()
	plan := plandomain.Plan{
		ID:           node.Generate(),
		OrgID:        orgID,
		Name:         fmt.Sprintf("plan-%s", node.Generate()),
		Price:        price,
		BillingCycle: cycle,
		Active:       true,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan.ID
}

type seedCustomerOpts struct {
	status          customerdomain.Status
	planID          snowflake.ID
	monthlyRevenue  int64
	acquisitionCost int64
	startDate       time.Time
	churnDate       *time.Time
}

func seedCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, opts seedCustomerOpts) {
	t.Helper()
	if opts.status == "" {
		opts.status = customerdomain.StatusActive
	}
	if opts.startDate.IsZero() {
		opts.startDate = testNow.AddDate(0, -6, 0)
	}
	id := node.Generate()
	customer := customerdomain.Customer{
		ID:              id,
		OrgID:           orgID,
		Name:            fmt.Sprintf("customer-%s", id),
		Email:           fmt.Sprintf("%s@example.com", id),
		Status:          opts.status,
		PlanID:          opts.planID,
		MonthlyRevenue:  opts.monthlyRevenue,
		AcquisitionCost: opts.acquisitionCost,
		StartDate:       opts.startDate,
		ChurnDate:       opts.churnDate,
		Metadata:        datatypes.JSONMap{},
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func TestCalculateMRRMonthlyPlan(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	planID := seedPlan(t, db, node, orgID, 10000, plandomain.CycleMonthly)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{planID: planID})

	mrr, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if mrr.Current != 10000 {
		t.Fatalf("mrr = %v, want 10000", mrr.Current)
	}

	arr, err := svc.CalculateARR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate arr: %v", err)
	}
	if arr.Current != 120000 {
		t.Fatalf("arr = %v, want 120000", arr.Current)
	}
	if arr.Growth != mrr.Growth {
		t.Fatalf("arr growth = %v, want %v", arr.Growth, mrr.Growth)
	}
}

func TestCalculateMRRNormalizesBillingCycles(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	quarterly := seedPlan(t, db, node, orgID, 30000, plandomain.CycleQuarterly)
	yearly := seedPlan(t, db, node, orgID, 120000, plandomain.CycleYearly)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{planID: quarterly})
	seedCustomer(t, db, node, orgID, seedCustomerOpts{planID: yearly})
	// No plan, so the customer's own monthly revenue counts.
	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 2500})

	mrr, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if mrr.Current != 22500 {
		t.Fatalf("mrr = %v, want 22500", mrr.Current)
	}
}

func TestCalculateMRRExcludesInactiveAndFuture(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000})
	churned := testNow.AddDate(0, -1, 0)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{
		status:         customerdomain.StatusChurned,
		monthlyRevenue: 2000,
		churnDate:      &churned,
	})
	seedCustomer(t, db, node, orgID, seedCustomerOpts{
		monthlyRevenue: 4000,
		startDate:      testNow.AddDate(0, 2, 0),
	})

	mrr, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if mrr.Current != 1000 {
		t.Fatalf("mrr = %v, want 1000", mrr.Current)
	}
}

func TestCalculateMRRMonthEndReference(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{
		monthlyRevenue: 1000,
		startDate:      time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC),
	})

	// May 31 minus one raw month lands back in May, so the prior month
	// must be derived from the month, not the date.
	mrr, err := svc.CalculateMRR(ctx, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if mrr.Current != 1000 {
		t.Fatalf("mrr current = %v, want 1000", mrr.Current)
	}
	if mrr.Previous != 0 {
		t.Fatalf("mrr previous = %v, want 0", mrr.Previous)
	}
	if mrr.Growth != 0 {
		t.Fatalf("mrr growth = %v, want 0", mrr.Growth)
	}
}

func TestCalculateChurnRate(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	started := testNow.AddDate(0, -6, 0)
	for i := 0; i < 10; i++ {
		seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000, startDate: started})
	}
	for i := 0; i < 2; i++ {
		churnDate := time.Date(2024, time.June, 5+i, 0, 0, 0, 0, time.UTC)
		seedCustomer(t, db, node, orgID, seedCustomerOpts{
			status:         customerdomain.StatusChurned,
			monthlyRevenue: 1000,
			startDate:      started,
			churnDate:      &churnDate,
		})
	}

	churn, err := svc.CalculateChurnRate(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate churn: %v", err)
	}
	if churn.Current != 20 {
		t.Fatalf("churn = %v, want 20", churn.Current)
	}
}

func TestCalculateChurnRateNoCustomers(t *testing.T) {
	svc, _, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	churn, err := svc.CalculateChurnRate(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate churn: %v", err)
	}
	if churn.Current != 0 {
		t.Fatalf("churn = %v, want 0", churn.Current)
	}
}

func TestCalculateLTV(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	started := testNow.AddDate(0, -6, 0)
	for i := 0; i < 10; i++ {
		seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 5000, startDate: started})
	}
	churnDate := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{
		status:    customerdomain.StatusChurned,
		startDate: started,
		churnDate: &churnDate,
	})

	// ARPU 5000, churn 10% => LTV 50000.
	ltv, err := svc.CalculateLTV(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate ltv: %v", err)
	}
	if ltv.Current != 50000 {
		t.Fatalf("ltv = %v, want 50000", ltv.Current)
	}
}

func TestCalculateLTVZeroChurn(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 5000})

	ltv, err := svc.CalculateLTV(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate ltv: %v", err)
	}
	if ltv.Current != 0 {
		t.Fatalf("ltv = %v, want 0", ltv.Current)
	}
}

func TestCalculateLTVUsesCurrentChurn(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	started := testNow.AddDate(0, -6, 0)
	for i := 0; i < 10; i++ {
		seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 5000, startDate: started})
	}
	churnDate := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{
		status:    customerdomain.StatusChurned,
		startDate: started,
		churnDate: &churnDate,
	})

	// A historical reference date still reports today's LTV: there is no
	// per-month churn history to divide a historical ARPU by.
	ltv, err := svc.CalculateLTV(ctx, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("calculate ltv: %v", err)
	}
	if ltv.Current != 50000 {
		t.Fatalf("ltv = %v, want 50000", ltv.Current)
	}
}

func TestCalculateCAC(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	inMonth := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{acquisitionCost: 300, startDate: inMonth})
	seedCustomer(t, db, node, orgID, seedCustomerOpts{acquisitionCost: 500, startDate: inMonth})
	// Outside the month, must not count.
	seedCustomer(t, db, node, orgID, seedCustomerOpts{acquisitionCost: 9000, startDate: testNow.AddDate(0, -2, 0)})

	cac, err := svc.CalculateCAC(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate cac: %v", err)
	}
	if cac.Current != 400 {
		t.Fatalf("cac = %v, want 400", cac.Current)
	}
}

func TestCalculateCACNoNewCustomers(t *testing.T) {
	svc, _, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	cac, err := svc.CalculateCAC(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate cac: %v", err)
	}
	if cac.Current != 0 {
		t.Fatalf("cac = %v, want 0", cac.Current)
	}
}

func TestMetricsRequireOrganization(t *testing.T) {
	svc, _, _ := setupMetricsService(t)

	if _, err := svc.CalculateMRR(context.Background(), testNow); err != metricsdomain.ErrInvalidOrganization {
		t.Fatalf("err = %v, want %v", err, metricsdomain.ErrInvalidOrganization)
	}
	if _, err := svc.GetAllMetrics(context.Background(), testNow); err != metricsdomain.ErrInvalidOrganization {
		t.Fatalf("err = %v, want %v", err, metricsdomain.ErrInvalidOrganization)
	}
}

func TestMetricsServedFromCache(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000})

	first, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}

	// Wipe the table; a cached read must still return the old value.
	if err := db.Exec("DELETE FROM customers").Error; err != nil {
		t.Fatalf("wipe customers: %v", err)
	}

	second, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if second.Current != first.Current {
		t.Fatalf("cached mrr = %v, want %v", second.Current, first.Current)
	}

	svc.ClearCache()

	third, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if third.Current != 0 {
		t.Fatalf("recomputed mrr = %v, want 0", third.Current)
	}
}

func TestMetricsCacheExpires(t *testing.T) {
	svc, db, clk := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000})

	if _, err := svc.CalculateMRR(ctx, testNow); err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if err := db.Exec("DELETE FROM customers").Error; err != nil {
		t.Fatalf("wipe customers: %v", err)
	}

	clk.Advance(6 * time.Minute)

	mrr, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if mrr.Current != 0 {
		t.Fatalf("mrr after expiry = %v, want 0", mrr.Current)
	}
}

func TestGetAllMetricsComplete(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000})

	all, err := svc.GetAllMetrics(ctx, testNow)
	if err != nil {
		t.Fatalf("get all metrics: %v", err)
	}
	for _, name := range []string{
		metricsdomain.MetricMRR,
		metricsdomain.MetricARR,
		metricsdomain.MetricChurnRate,
		metricsdomain.MetricLTV,
		metricsdomain.MetricCAC,
	} {
		if _, ok := all[name]; !ok {
			t.Fatalf("missing metric %q", name)
		}
	}
	if all[metricsdomain.MetricARR].Current != all[metricsdomain.MetricMRR].Current*12 {
		t.Fatalf("arr = %v, want 12x mrr %v", all[metricsdomain.MetricARR].Current, all[metricsdomain.MetricMRR].Current)
	}
}

func TestGetHistoricalDataOrdered(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000})

	points, err := svc.GetHistoricalData(ctx, 3)
	if err != nil {
		t.Fatalf("historical: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len = %d, want 3", len(points))
	}
	want := []string{"2024-04", "2024-05", "2024-06"}
	for i, point := range points {
		if point.Month != want[i] {
			t.Fatalf("month[%d] = %q, want %q", i, point.Month, want[i])
		}
	}
}

func TestGetHistoricalDataMonthEndClock(t *testing.T) {
	svc, db, clk := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000})

	// 2024-05-31: each series month must appear exactly once even when
	// the clock sits on a day the shorter prior months do not have.
	clk.Advance(-15 * 24 * time.Hour)

	points, err := svc.GetHistoricalData(ctx, 3)
	if err != nil {
		t.Fatalf("historical: %v", err)
	}
	want := []string{"2024-03", "2024-04", "2024-05"}
	if len(points) != len(want) {
		t.Fatalf("len = %d, want %d", len(points), len(want))
	}
	for i, point := range points {
		if point.Month != want[i] {
			t.Fatalf("month[%d] = %q, want %q", i, point.Month, want[i])
		}
	}

	growth, err := svc.GetCustomerGrowth(ctx, 3)
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	for i, point := range growth {
		if point.Month != want[i] {
			t.Fatalf("growth month[%d] = %q, want %q", i, point.Month, want[i])
		}
	}
}

func TestGetHistoricalDataClampsMonths(t *testing.T) {
	cfg := config.DefaultAnalyticsConfig()
	cfg.MaxHistoricalMonths = 2
	svc, _, _ := setupMetricsServiceWithConfig(t, cfg)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	points, err := svc.GetHistoricalData(ctx, 6)
	if err != nil {
		t.Fatalf("historical: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}

	if _, err := svc.GetHistoricalData(ctx, 0); err != metricsdomain.ErrInvalidMonths {
		t.Fatalf("err = %v, want %v", err, metricsdomain.ErrInvalidMonths)
	}
}

func TestGetCustomerGrowth(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	started := testNow.AddDate(0, -3, 0)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000, startDate: started})
	seedCustomer(t, db, node, orgID, seedCustomerOpts{monthlyRevenue: 1000, startDate: started})
	churnDate := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)
	seedCustomer(t, db, node, orgID, seedCustomerOpts{
		status:    customerdomain.StatusChurned,
		startDate: started,
		churnDate: &churnDate,
	})

	points, err := svc.GetCustomerGrowth(ctx, 1)
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len = %d, want 1", len(points))
	}
	point := points[0]
	if point.Total != 3 || point.Active != 2 || point.Churned != 1 {
		t.Fatalf("point = %+v, want total 3 active 2 churned 1", point)
	}
}

func TestMetricsScopedToOrg(t *testing.T) {
	svc, db, _ := setupMetricsService(t)
	node := mustNode(t)
	orgA := node.Generate()
	orgB := node.Generate()

	seedCustomer(t, db, node, orgA, seedCustomerOpts{monthlyRevenue: 1000})
	seedCustomer(t, db, node, orgB, seedCustomerOpts{monthlyRevenue: 9000})

	ctx := orgcontext.WithOrgID(context.Background(), int64(orgA))
	mrr, err := svc.CalculateMRR(ctx, testNow)
	if err != nil {
		t.Fatalf("calculate mrr: %v", err)
	}
	if mrr.Current != 1000 {
		t.Fatalf("mrr = %v, want 1000", mrr.Current)
	}
}

func TestGrowthRate(t *testing.T) {
	if got := growthRate(150, 100); got != 50 {
		t.Fatalf("growthRate(150, 100) = %v, want 50", got)
	}
	if got := growthRate(50, 100); got != -50 {
		t.Fatalf("growthRate(50, 100) = %v, want -50", got)
	}
	if got := growthRate(100, 0); got != 0 {
		t.Fatalf("growthRate(100, 0) = %v, want 0", got)
	}
}
