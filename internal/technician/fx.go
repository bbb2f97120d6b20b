package technician

import (
	"github.com/smallbiznis/repairdesk/internal/technician/domain"
	"github.com/smallbiznis/repairdesk/internal/technician/service"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("technician.service",
	fx.Provide(pkgrepository.ProvideStore[domain.Technician]),
	fx.Provide(service.New),
)
