package escrow

import (
	"insulead-core/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("escrow.module",
	fx.Provide(
		NewService,
		NewRateProvider,
		fx.Annotate(func() any { return &Job{} }, fx.ResultTags(`group:"models"`)),
	),
)

var ServerModule = fx.Module("escrow.server",
	Module,
	fx.Provide(httpapi.AsRoute(NewHandler)),
)
