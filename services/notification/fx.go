package notification

import (
	"insulead-core/pkg/task"

	"go.uber.org/fx"
)

var Module = fx.Module("notification.module",
	fx.Provide(
		fx.Annotate(NewNotifier, fx.As(new(Notifier))),
	),
)

var WorkerModule = fx.Module("notification.worker",
	fx.Provide(
		NewLogSender,
		NewWorker,
		fx.Annotate(provideHandlers, fx.ResultTags(`group:"task_handlers,flatten"`)),
	),
)

func provideHandlers(w *Worker) []task.Handler {
	return w.Handlers()
}
