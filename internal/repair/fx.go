package repair

import (
	"github.com/smallbiznis/repairdesk/internal/repair/domain"
	"github.com/smallbiznis/repairdesk/internal/repair/repository"
	"github.com/smallbiznis/repairdesk/internal/repair/service"
	"go.uber.org/fx"
)

var Module = fx.Module("repair.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
	fx.Provide(
		func(s *service.Service) domain.Service { return s },
		func(s *service.Service) domain.Reader { return s },
	),
)

