package lead

import (
	"insulead-core/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("lead.module",
	fx.Provide(
		NewService,
		fx.Annotate(func() any { return &Lead{} }, fx.ResultTags(`group:"models"`)),
		fx.Annotate(func() any { return &Assignment{} }, fx.ResultTags(`group:"models"`)),
	),
)

var ServerModule = fx.Module("lead.server",
	Module,
	fx.Provide(httpapi.AsRoute(NewHandler)),
)
