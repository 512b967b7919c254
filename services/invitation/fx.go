package invitation

import (
	"insulead-core/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("invitation.module",
	fx.Provide(
		NewService,
		fx.Annotate(func() any { return &Invitation{} }, fx.ResultTags(`group:"models"`)),
		fx.Annotate(func() any { return &Quote{} }, fx.ResultTags(`group:"models"`)),
	),
)

var ServerModule = fx.Module("invitation.server",
	Module,
	fx.Provide(httpapi.AsRoute(NewHandler)),
)
