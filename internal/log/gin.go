package log

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewGinLogger writes one entry per request once the handlers have run.
func NewGinLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		begin := time.Now()
		c.Next()

		code := c.Writer.Status()
		lvl, msg := requestOutcome(code, c.Errors.Errors())
		ce := logger.Check(lvl, msg)
		if ce == nil {
			return
		}
		ce.Write(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("code", code),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(begin)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// requestOutcome picks the level and message for a finished request. Errors
// attached with c.Error always log as errors.
func requestOutcome(code int, errs []string) (zapcore.Level, string) {
	switch {
	case len(errs) > 0:
		return zapcore.ErrorLevel, strings.Join(errs, "; ")
	case code >= http.StatusInternalServerError:
		return zapcore.ErrorLevel, http.StatusText(code)
	case code >= http.StatusBadRequest:
		return zapcore.WarnLevel, http.StatusText(code)
	default:
		return zapcore.DebugLevel, http.StatusText(code)
	}
}
