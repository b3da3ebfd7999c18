package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const TimeFormat = "2006-01-02 15:04:05.999"

// AtomicLevel lets the running logger's level be changed.
var AtomicLevel = zap.NewAtomicLevel()

// New builds the process logger. An unknown level keeps the default (info).
func New(level string) (*zap.Logger, error) {
	_ = AtomicLevel.UnmarshalText([]byte(level))

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.Level = AtomicLevel
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeFormat)
	config.DisableStacktrace = true
	config.Sampling = nil
	return config.Build()
}
