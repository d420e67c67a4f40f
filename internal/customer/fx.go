package customer

import (
	"github.com/revlytic/revlytic/internal/customer/repository"
	"github.com/revlytic/revlytic/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
