package log

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGinLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(NewGinLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("database is down"))
		c.Status(http.StatusInternalServerError)
	})

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Contains(t, entries[2].Message, "database is down")
	assert.Equal(t, "/missing", entries[1].ContextMap()["path"])
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core))
	ctx := context.Background()
	query := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), query, nil)
	l.Trace(ctx, time.Now(), query, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	l.Trace(ctx, time.Now(), query, errors.New("syntax error"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "query", entries[0].Message)
	assert.Equal(t, "query", entries[1].Message)
	assert.Equal(t, "slow query", entries[2].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestGormLoggerLogMode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()
	query := func() (string, int64) { return "SELECT 1", 1 }

	warnOnly := NewGormLogger(zap.New(core)).LogMode(gormlogger.Warn)
	warnOnly.Trace(ctx, time.Now(), query, nil)
	warnOnly.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	warnOnly.Info(ctx, "migrating %s", "comments")
	require.Len(t, logs.TakeAll(), 1)

	silent := NewGormLogger(zap.New(core)).LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), query, errors.New("syntax error"))
	assert.Zero(t, logs.Len())
}

func TestRequestOutcome(t *testing.T) {
	lvl, msg := requestOutcome(http.StatusOK, []string{"template missing"})
	assert.Equal(t, zapcore.ErrorLevel, lvl)
	assert.Equal(t, "template missing", msg)

	lvl, msg = requestOutcome(http.StatusUnauthorized, nil)
	assert.Equal(t, zapcore.WarnLevel, lvl)
	assert.Equal(t, "Unauthorized", msg)

	lvl, _ = requestOutcome(http.StatusCreated, nil)
	assert.Equal(t, zapcore.DebugLevel, lvl)
}

func TestNewKeepsDefaultOnUnknownLevel(t *testing.T) {
	logger, err := New("loud")
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Equal(t, zapcore.InfoLevel, AtomicLevel.Level())

	_, err = New("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, AtomicLevel.Level())
	AtomicLevel.SetLevel(zapcore.InfoLevel)
}
