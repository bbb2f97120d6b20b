package currency

import (
	"github.com/smallbiznis/repairdesk/internal/currency/repository"
	"github.com/smallbiznis/repairdesk/internal/currency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("currency.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
