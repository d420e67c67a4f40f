package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	metricComputations metric.Int64Counter
	reportsGenerated   metric.Int64Counter
	insightsRequests   metric.Int64Counter
	rateLimitAllowed   metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "revlytic"
	}
	meter := provider.Meter(name)

	metricComputations, err := meter.Int64Counter("revlytic_metric_computations_total")
	if err != nil {
		return nil, err
	}
	reportsGenerated, err := meter.Int64Counter("revlytic_reports_generated_total")
	if err != nil {
		return nil, err
	}
	insightsRequests, err := meter.Int64Counter("revlytic_insights_requests_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("revlytic_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("revlytic_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		metricComputations: metricComputations,
		reportsGenerated:   reportsGenerated,
		insightsRequests:   insightsRequests,
		rateLimitAllowed:   rateLimitAllowed,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordMetricComputation increments per-metric computation counts.
func (m *Metrics) RecordMetricComputation(ctx context.Context, metricName string) {
	if m == nil {
		return
	}
	m.metricComputations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("metric", strings.TrimSpace(metricName)),
	))
}

// RecordReportGenerated increments generated-report counts.
func (m *Metrics) RecordReportGenerated(ctx context.Context) {
	if m == nil {
		return
	}
	m.reportsGenerated.Add(ctx, 1)
}

// RecordInsightsRequest increments insights forwarder calls by outcome.
func (m *Metrics) RecordInsightsRequest(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.insightsRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", strings.TrimSpace(source)),
	))
}

// RecordRateLimit increments allow/deny counters for guarded endpoints.
func (m *Metrics) RecordRateLimit(ctx context.Context, endpoint string, allowed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	if allowed {
		m.rateLimitAllowed.Add(ctx, 1, attrs)
		return
	}
	m.rateLimitDenied.Add(ctx, 1, attrs)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
