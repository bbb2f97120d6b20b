package customer

import (
	"github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/customer/repository"
	"github.com/smallbiznis/repairdesk/internal/customer/service"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(pkgrepository.ProvideStore[domain.Device]),
	fx.Provide(service.New),
)
