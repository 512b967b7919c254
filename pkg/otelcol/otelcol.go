package otelcol

import (
	"context"

	"insulead-core/pkg/config"
	"insulead-core/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol",
	fx.Provide(ProvideExporter, ProvideTrace),
	fx.Invoke(registerGlobal),
)

// ProvideExporter returns nil when OTEL.ADDR is empty; spans are then
// recorded locally but never exported.
func ProvideExporter(cfg *config.Config) (trace.SpanExporter, error) {
	if cfg.Otel.Addr == "" {
		return nil, nil
	}

	switch cfg.Otel.Protocol {
	case "grpc":
		return exporters.ProvideGrpc(cfg)
	default:
		return exporters.ProvideHttp(cfg)
	}
}

func ProvideTrace(cfg *config.Config, exporter trace.SpanExporter) (*trace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("service.version", cfg.AppVersion),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
	if err != nil {
		return nil, err
	}

	opts := []trace.TracerProviderOption{trace.WithResource(res)}
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

func registerGlobal(lc fx.Lifecycle, tp *trace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[Otel] Flushing tracer provider")
			return tp.Shutdown(ctx)
		},
	})
}
