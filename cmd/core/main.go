package main

import (
	"os"

	"go.uber.org/fx"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/config"
	"insulead-core/pkg/db"
	"insulead-core/pkg/featureflags"
	"insulead-core/pkg/gen"
	"insulead-core/pkg/health"
	"insulead-core/pkg/httpapi"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/middleware"
	"insulead-core/pkg/minio"
	"insulead-core/pkg/otelcol"
	"insulead-core/pkg/profiling"
	"insulead-core/pkg/redis"
	"insulead-core/pkg/secretmanager"
	"insulead-core/pkg/sequence"
	"insulead-core/pkg/server"
	"insulead-core/pkg/task"
	"insulead-core/services/directory"
	"insulead-core/services/escrow"
	"insulead-core/services/gatekeeper"
	"insulead-core/services/invitation"
	"insulead-core/services/lead"
	"insulead-core/services/notification"
	"insulead-core/services/router"
)

func main() {
	app := fx.New(
		secrets(),
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		fx.Invoke(db.Migrate),
		redis.Module,
		sequence.Module,
		gen.Module,
		clock.Module,
		task.Client,
		featureflags.Module,
		minio.Client,
		middleware.Module,
		health.Module,
		httpapi.Module,
		server.ProvideHTTPServer,

		notification.Module,
		lead.ServerModule,
		directory.ServerModule,
		gatekeeper.ServerModule,
		invitation.ServerModule,
		router.ServerModule,
		escrow.ServerModule,
		logger.FxLogger,
	)

	app.Run()
}

func secrets() fx.Option {
	if os.Getenv("VAULT_ADDR") == "" {
		return fx.Options()
	}
	return secretmanager.Module
}
