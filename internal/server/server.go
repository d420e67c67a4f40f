package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revlytic/revlytic/internal/cache"
	"github.com/revlytic/revlytic/internal/config"
	"github.com/revlytic/revlytic/internal/customer"
	customerdomain "github.com/revlytic/revlytic/internal/customer/domain"
	"github.com/revlytic/revlytic/internal/insights"
	insightsdomain "github.com/revlytic/revlytic/internal/insights/domain"
	"github.com/revlytic/revlytic/internal/metrics"
	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
	"github.com/revlytic/revlytic/internal/observability"
	obsmiddleware "github.com/revlytic/revlytic/internal/observability/logger"
	obsmetrics "github.com/revlytic/revlytic/internal/observability/metrics"
	obstracing "github.com/revlytic/revlytic/internal/observability/tracing"
	"github.com/revlytic/revlytic/internal/payment"
	paymentdomain "github.com/revlytic/revlytic/internal/payment/domain"
	"github.com/revlytic/revlytic/internal/plan"
	plandomain "github.com/revlytic/revlytic/internal/plan/domain"
	"github.com/revlytic/revlytic/internal/ratelimit"
	"github.com/revlytic/revlytic/internal/report"
	reportdomain "github.com/revlytic/revlytic/internal/report/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	cache.Module,
	customer.Module,
	plan.Module,
	payment.Module,
	metrics.Module,
	report.Module,
	insights.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	customerSvc customerdomain.Service
	planSvc     plandomain.Service
	paymentSvc  paymentdomain.Service
	metricsSvc  metricsdomain.Service
	reportSvc   reportdomain.Service
	insightsSvc insightsdomain.Service
	limiter     *ratelimit.APILimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	CustomerSvc customerdomain.Service
	PlanSvc     plandomain.Service
	PaymentSvc  paymentdomain.Service
	MetricsSvc  metricsdomain.Service
	ReportSvc   reportdomain.Service
	InsightsSvc insightsdomain.Service
	Limiter     *ratelimit.APILimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		customerSvc: p.CustomerSvc,
		planSvc:     p.PlanSvc,
		paymentSvc:  p.PaymentSvc,
		metricsSvc:  p.MetricsSvc,
		reportSvc:   p.ReportSvc,
		insightsSvc: p.InsightsSvc,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.OrgContext())

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PATCH("/customers/:id", s.UpdateCustomer)
	api.POST("/customers/:id/churn", s.ChurnCustomer)

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.POST("/plans", s.CreatePlan)
	api.GET("/plans/:id", s.GetPlanByID)
	api.PATCH("/plans/:id", s.UpdatePlan)

	// -------- Payments --------
	api.GET("/payments", s.ListPayments)
	api.POST("/payments", s.CreatePayment)

	// -------- Metrics --------
	api.GET("/metrics", s.GetAllMetrics)
	api.GET("/metrics/mrr", s.GetMRR)
	api.GET("/metrics/arr", s.GetARR)
	api.GET("/metrics/churn", s.GetChurnRate)
	api.GET("/metrics/ltv", s.GetLTV)
	api.GET("/metrics/cac", s.GetCAC)
	api.GET("/metrics/historical", s.GetHistoricalData)
	api.GET("/metrics/customer-growth", s.GetCustomerGrowth)
	api.POST("/metrics/refresh", s.RefreshRateLimit(), s.RefreshMetrics)

	// -------- Reports --------
	api.GET("/reports/metrics", s.GetMetricsReport)

	// -------- Insights --------
	api.GET("/insights", s.InsightsRateLimit(), s.GetInsights)
}
