package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elim/internal/config"
	"elim/internal/db"
	applog "elim/internal/log"
	"elim/internal/metrics"
	"elim/internal/realtime"
	"elim/internal/router"
	"elim/internal/services"
	"elim/internal/store"
	"elim/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "run the web server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "create or update database tables",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			gdb, err := db.Open(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			logger.Info("database migrated")
			return nil
		},
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := applog.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newCache(cfg *config.Config, logger *zap.Logger) (utils.Cache, error) {
	if cfg.RedisURL != "" {
		logger.Info("thread cache: redis")
		return utils.NewRedisCache(cfg.RedisURL)
	}
	logger.Info("thread cache: in-process", zap.Int("size", cfg.CacheSize))
	return utils.NewLocalCache(cfg.CacheSize)
}

func serve(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.DevLogin {
		logger.Warn("development sign-in is enabled")
	}

	gdb, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	cache, err := newCache(cfg, logger)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logger.Named("realtime"))
	m := metrics.New()
	notifications := services.NewNotificationService(gdb)
	comments := services.NewCommentService(store.NewGormStore(gdb),
		services.WithCache(cache, cfg.CacheTTL),
		services.WithPoints(services.NewPointsService(gdb)),
		services.WithNotifications(notifications),
		services.WithPublisher(hub),
		services.WithMetrics(m),
		services.WithLogger(logger.Named("comments")),
	)

	engine, err := router.NewEngine(cfg, router.Dependencies{
		DB:            gdb,
		Comments:      comments,
		Notifications: notifications,
		Hub:           hub,
		Metrics:       m,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ELIM server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
