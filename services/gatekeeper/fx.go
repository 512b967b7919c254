package gatekeeper

import (
	"insulead-core/pkg/dns"
	"insulead-core/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("gatekeeper.module",
	fx.Provide(
		NewService,
		NewRedisThrottle,
		dns.NewResolver,
	),
)

var ServerModule = fx.Module("gatekeeper.server",
	Module,
	fx.Provide(httpapi.AsRoute(NewHandler)),
)
