package providers

import (
	"github.com/lightningshop/jobtrack/internal/providers/pdf"
	"github.com/lightningshop/jobtrack/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
	storage.Module,
)
