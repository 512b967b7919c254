package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"insulead-core/pkg/config"
)

func TestNewReplacesGlobals(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	cfg := &config.Config{AppEnv: "production", AppName: "core"}
	log, err := New(ConfigParams{Cfg: cfg})
	require.NoError(t, err)
	require.Same(t, log, zap.L())
}

func TestWithTraceWithoutSpan(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	WithTrace(context.Background()).Info("hello")

	require.Equal(t, 1, logs.Len())
	require.Empty(t, logs.All()[0].Context)
}

func TestEventLogger(t *testing.T) {
	log := zap.NewNop()

	dev := EventLogger(&config.Config{AppEnv: "development"}, log)
	zl, ok := dev.(*fxevent.ZapLogger)
	require.True(t, ok)
	require.Same(t, log, zl.Logger)

	require.Equal(t, fxevent.NopLogger, EventLogger(&config.Config{AppEnv: "production"}, log))
	require.Equal(t, fxevent.NopLogger, EventLogger(nil, log))
}
