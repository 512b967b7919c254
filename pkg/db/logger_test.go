package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func newObserved(level logger.LogLevel, showSQL bool) (*ZapGormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapGormLogger(zap.New(core), level, showSQL), logs
}

func TestTraceLogsErrors(t *testing.T) {
	l, logs := newObserved(logger.Warn, false)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, errors.New("boom"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "gorm.query", entry.Message)
	require.Equal(t, zapcore.ErrorLevel, entry.Level)
	_, hasSQL := entry.ContextMap()["sql"]
	require.False(t, hasSQL)
}

func TestTraceSkipsRecordNotFound(t *testing.T) {
	l, logs := newObserved(logger.Warn, true)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM contractors", 0
	}, logger.ErrRecordNotFound)

	require.Zero(t, logs.Len())
}

func TestTraceSlowQuery(t *testing.T) {
	l, logs := newObserved(logger.Warn, true)
	l.SlowThreshold = time.Millisecond

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "gorm.slow_query", logs.All()[0].Message)
	require.Equal(t, "SELECT 1", logs.All()[0].ContextMap()["sql"])
}

func TestSilentLogsNothing(t *testing.T) {
	l, logs := newObserved(logger.Info, true)
	silent := l.LogMode(logger.Silent)

	silent.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, errors.New("boom"))

	require.Zero(t, logs.Len())
}
