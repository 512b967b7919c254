package main

import (
	"os"

	"go.uber.org/fx"

	"insulead-core/pkg/config"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/otelcol"
	"insulead-core/pkg/profiling"
	"insulead-core/pkg/secretmanager"
	"insulead-core/pkg/task"
	"insulead-core/services/notification"
)

func main() {
	app := fx.New(
		secrets(),
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		task.Server,
		notification.WorkerModule,
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
