package insights

import (
	"github.com/revlytic/revlytic/internal/insights/provider"
	"github.com/revlytic/revlytic/internal/insights/service"
	"go.uber.org/fx"
)

var Module = fx.Module("insights.service",
	fx.Provide(provider.NewHTTP),
	fx.Provide(service.NewService),
)
