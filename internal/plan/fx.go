package plan

import (
	"github.com/revlytic/revlytic/internal/plan/repository"
	"github.com/revlytic/revlytic/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
