package changefeed

import "go.uber.org/fx"

var Module = fx.Module("changefeed",
	fx.Provide(
		NewHub,
		RegisterBridge,
	),
	fx.Invoke(func(*Bridge) {}),
)
