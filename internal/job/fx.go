package job

import (
	"github.com/lightningshop/jobtrack/internal/job/repository"
	"github.com/lightningshop/jobtrack/internal/job/service"
	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
