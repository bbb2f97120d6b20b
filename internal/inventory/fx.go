package inventory

import (
	"github.com/smallbiznis/repairdesk/internal/inventory/domain"
	"github.com/smallbiznis/repairdesk/internal/inventory/service"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.service",
	fx.Provide(pkgrepository.ProvideStore[domain.Item]),
	fx.Provide(service.New),
)
