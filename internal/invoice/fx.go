package invoice

import (
	"github.com/lightningshop/jobtrack/internal/invoice/render"
	"github.com/lightningshop/jobtrack/internal/invoice/repository"
	"github.com/lightningshop/jobtrack/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
