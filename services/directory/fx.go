package directory

import (
	"insulead-core/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("directory.module",
	fx.Provide(
		NewService,
		fx.Annotate(func() any { return &User{} }, fx.ResultTags(`group:"models"`)),
		fx.Annotate(func() any { return &Contractor{} }, fx.ResultTags(`group:"models"`)),
	),
)

var ServerModule = fx.Module("directory.server",
	Module,
	fx.Provide(httpapi.AsRoute(NewHandler)),
)
