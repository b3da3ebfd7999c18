// Package routertest starts the full HTTP stack on an in-memory database.
package routertest

import (
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"elim/internal/config"
	"elim/internal/db/dbtest"
	"elim/internal/metrics"
	"elim/internal/realtime"
	"elim/internal/router"
	"elim/internal/services"
	"elim/internal/store"
	"elim/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Env struct {
	Server  *httptest.Server
	DB      *gorm.DB
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
}

// TemplatesDir locates web/templates relative to this file.
func TemplatesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "web", "templates")
}

// New serves the application with development sign-in enabled.
func New(t testing.TB) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := dbtest.New(t)
	cache, err := utils.NewLocalCache(64)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	logger := zap.NewNop()
	hub := realtime.NewHub(logger)
	m := metrics.New()
	notifications := services.NewNotificationService(gdb)

	comments := services.NewCommentService(store.NewGormStore(gdb),
		services.WithCache(cache, time.Minute),
		services.WithPoints(services.NewPointsService(gdb)),
		services.WithNotifications(notifications),
		services.WithPublisher(hub),
		services.WithMetrics(m),
		services.WithLogger(logger),
	)

	cfg := &config.Config{
		SessionSecret: "test-secret",
		TemplatesDir:  TemplatesDir(),
		DevLogin:      true,
	}
	engine, err := router.NewEngine(cfg, router.Dependencies{
		DB:            gdb,
		Comments:      comments,
		Notifications: notifications,
		Hub:           hub,
		Metrics:       m,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &Env{Server: srv, DB: gdb, Hub: hub, Metrics: m}
}
