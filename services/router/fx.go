package router

import (
	"insulead-core/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("router.module",
	fx.Provide(NewService),
)

var ServerModule = fx.Module("router.server",
	Module,
	fx.Provide(httpapi.AsRoute(NewHandler)),
)
