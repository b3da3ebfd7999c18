package log

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const slowQuery = 300 * time.Millisecond

// GormLogger sends gorm's statement trace to zap. Statements log at debug,
// statements slower than Slow at warn, failures at error. A missing record is
// an ordinary result, not a failure.
type GormLogger struct {
	zap   *zap.Logger
	Slow  time.Duration
	level logger.LogLevel
}

func NewGormLogger(l *zap.Logger) *GormLogger {
	return &GormLogger{zap: l.Named("gorm"), Slow: slowQuery, level: logger.Info}
}

// LogMode returns a copy that drops everything below level.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.zap.Sugar().Infof(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.zap.Sugar().Warnf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.zap.Sugar().Errorf(msg, args...)
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var lvl zapcore.Level
	var msg string
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		lvl, msg = zapcore.ErrorLevel, err.Error()
	case l.Slow > 0 && elapsed > l.Slow:
		if l.level < logger.Warn {
			return
		}
		lvl, msg = zapcore.WarnLevel, "slow query"
	default:
		if l.level < logger.Info {
			return
		}
		lvl, msg = zapcore.DebugLevel, "query"
	}

	ce := l.zap.Check(lvl, msg)
	if ce == nil {
		return
	}
	stmt, rows := fc()
	ce.Write(
		zap.String("sql", stmt),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
		zap.String("caller", utils.FileWithLineNum()),
	)
}
