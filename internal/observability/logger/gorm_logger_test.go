package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormTraceLevels(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig())
	ctx := context.Background()

	l.Trace(ctx, time.Now(), statement("SELECT * FROM tickets", 1), nil)
	assert.Zero(t, logs.Len())

	l.Trace(ctx, time.Now(), statement("SELECT * FROM tickets", 0), gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(ctx, time.Now().Add(-time.Second), statement("  UPDATE documents SET status = ?", 1), nil)
	l.Trace(ctx, time.Now(), statement("INSERT INTO documents VALUES (?)", -1), errors.New("disk full"))

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "UPDATE", entries[0].ContextMap()["operation"])
	assert.Equal(t, "UPDATE documents SET status = ?", entries[0].ContextMap()["sql"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
	assert.NotContains(t, entries[1].ContextMap(), "rows_affected")
}

func TestGormLogModeReturnsCopy(t *testing.T) {
	logs := observeGlobal(t)
	base := NewGormLogger(DefaultGormLoggerConfig())
	verbose := base.LogMode(gormlogger.Info)

	verbose.Trace(context.Background(), time.Now(), statement("DELETE FROM line_items WHERE repair_id = ?", 2), nil)
	base.Trace(context.Background(), time.Now(), statement("SELECT 1", 1), nil)

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "DELETE", entries[0].ContextMap()["operation"])
}

func TestGormParamsFilterDropsValues(t *testing.T) {
	sql, params := NewGormLogger(DefaultGormLoggerConfig()).ParamsFilter(context.Background(), "SELECT ? ", "secret")
	assert.Equal(t, "SELECT ? ", sql)
	assert.Nil(t, params)
}
