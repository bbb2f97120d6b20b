package document

import (
	"github.com/smallbiznis/repairdesk/internal/document/render"
	"github.com/smallbiznis/repairdesk/internal/document/repository"
	"github.com/smallbiznis/repairdesk/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewPDFRenderer),
	fx.Provide(service.New),
)
