package cache

import (
	"github.com/revlytic/revlytic/internal/clock"
	"github.com/revlytic/revlytic/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("cache",
	fx.Provide(provideMetricsCache),
)

func provideMetricsCache(clk clock.Clock, analytics *config.AnalyticsConfigHolder) *MetricsCache {
	return NewMetricsCache(clk, analytics.Get().CacheTTL())
}
