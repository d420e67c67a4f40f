package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/revlytic/revlytic/internal/config"
	customerdomain "github.com/revlytic/revlytic/internal/customer/domain"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	"github.com/revlytic/revlytic/internal/orgcontext"
)

type fakeMetricsService struct {
	value      metricsdomain.MetricValue
	lastDate   time.Time
	cleared    bool
	orgPresent bool
}

func (f *fakeMetricsService) CalculateMRR(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	_, f.orgPresent = orgcontext.OrgIDFromContext(ctx)
	f.lastDate = date
	return f.value, nil
}

func (f *fakeMetricsService) CalculateARR(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	return f.value, nil
}

func (f *fakeMetricsService) CalculateChurnRate(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	return f.value, nil
}

func (f *fakeMetricsService) CalculateLTV(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	return f.value, nil
}

func (f *fakeMetricsService) CalculateCAC(ctx context.Context, date time.Time) (metricsdomain.MetricValue, error) {
	return f.value, nil
}

func (f *fakeMetricsService) GetAllMetrics(ctx context.Context, date time.Time) (map[string]metricsdomain.MetricValue, error) {
	return map[string]metricsdomain.MetricValue{metricsdomain.MetricMRR: f.value}, nil
}

func (f *fakeMetricsService) GetHistoricalData(ctx context.Context, months int) ([]metricsdomain.HistoricalPoint, error) {
	return nil, nil
}

func (f *fakeMetricsService) GetCustomerGrowth(ctx context.Context, months int) ([]metricsdomain.CustomerGrowthPoint, error) {
	return nil, nil
}

func (f *fakeMetricsService) ClearCache() {
	f.cleared = true
}

type fakeCustomerService struct {
	err error
}

func (f *fakeCustomerService) Create(ctx context.Context, req customerdomain.CreateCustomerRequest) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, f.err
}

func (f *fakeCustomerService) List(ctx context.Context, req customerdomain.ListCustomerRequest) (customerdomain.ListCustomerResponse, error) {
	return customerdomain.ListCustomerResponse{}, f.err
}

func (f *fakeCustomerService) GetByID(ctx context.Context, req customerdomain.GetCustomerRequest) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, f.err
}

func (f *fakeCustomerService) Update(ctx context.Context, req customerdomain.UpdateCustomerRequest) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, f.err
}

func (f *fakeCustomerService) Churn(ctx context.Context, req customerdomain.ChurnCustomerRequest) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, f.err
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	srv.engine = router
	api := router.Group("/api")
	api.Use(srv.OrgContext())
	api.GET("/metrics/mrr", srv.GetMRR)
	api.POST("/metrics/refresh", srv.RefreshMetrics)
	api.GET("/customers/:id", srv.GetCustomerByID)
	api.POST("/customers/:id/churn", srv.ChurnCustomer)
	return router
}

func TestOrgContextRejectsMissingHeader(t *testing.T) {
	srv := &Server{metricsSvc: &fakeMetricsService{}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/mrr?date=2024-06-15", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestOrgContextRejectsMalformedHeader(t *testing.T) {
	srv := &Server{metricsSvc: &fakeMetricsService{}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/mrr?date=2024-06-15", nil)
	req.Header.Set(HeaderOrg, "not-a-snowflake")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestOrgContextFallsBackToDefaultOrg(t *testing.T) {
	metrics := &fakeMetricsService{value: metricsdomain.MetricValue{Current: 100}}
	srv := &Server{
		cfg:        config.Config{DefaultOrgID: 42},
		metricsSvc: metrics,
	}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/mrr?date=2024-06-15", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", resp.Code, resp.Body.String())
	}
	if !metrics.orgPresent {
		t.Fatal("org not injected into request context")
	}
}

func TestGetMRRRequiresDate(t *testing.T) {
	srv := &Server{metricsSvc: &fakeMetricsService{}}
	router := newTestRouter(srv)
	orgID := snowflake.ID(7)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/mrr", nil)
	req.Header.Set(HeaderOrg, orgID.String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}

	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Type != "validation_error" {
		t.Fatalf("type = %q, want validation_error", payload.Error.Type)
	}
}

func TestGetMRRParsesDate(t *testing.T) {
	metrics := &fakeMetricsService{value: metricsdomain.MetricValue{Current: 100}}
	srv := &Server{metricsSvc: metrics}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/mrr?date=2024-06-15", nil)
	req.Header.Set(HeaderOrg, snowflake.ID(7).String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", resp.Code, resp.Body.String())
	}
	want := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !metrics.lastDate.Equal(want) {
		t.Fatalf("date = %v, want %v", metrics.lastDate, want)
	}
}

func TestRefreshMetricsClearsCache(t *testing.T) {
	metrics := &fakeMetricsService{}
	srv := &Server{metricsSvc: metrics}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/metrics/refresh", nil)
	req.Header.Set(HeaderOrg, snowflake.ID(7).String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if !metrics.cleared {
		t.Fatal("cache not cleared")
	}
}

func TestCustomerNotFoundMapsTo404(t *testing.T) {
	srv := &Server{customerSvc: &fakeCustomerService{err: customerdomain.ErrNotFound}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/customers/123", nil)
	req.Header.Set(HeaderOrg, snowflake.ID(7).String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestChurnConflictMapsTo409(t *testing.T) {
	srv := &Server{customerSvc: &fakeCustomerService{err: customerdomain.ErrAlreadyChurned}}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/customers/123/churn", nil)
	req.Header.Set(HeaderOrg, snowflake.ID(7).String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
}
