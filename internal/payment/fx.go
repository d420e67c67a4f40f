package payment

import (
	"github.com/revlytic/revlytic/internal/payment/repository"
	"github.com/revlytic/revlytic/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
