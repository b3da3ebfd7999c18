package router

import (
	"elim/internal/config"
	"elim/internal/handlers"
	applog "elim/internal/log"
	"elim/internal/metrics"
	"elim/internal/middleware"
	"elim/internal/realtime"
	"elim/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the long-lived objects the routes are served by.
type Dependencies struct {
	DB            *gorm.DB
	Comments      *services.CommentService
	Notifications *services.NotificationService
	Hub           *realtime.Hub
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// NewEngine assembles the gin engine: logging, recovery, sessions, templates,
// static assets and every route.
func NewEngine(cfg *config.Config, d Dependencies) (*gin.Engine, error) {
	r := gin.New()
	r.Use(applog.NewGinLogger(d.Logger), gin.Recovery())
	r.Use(middleware.Sessions(cfg.SessionSecret))

	render, err := LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}
	r.HTMLRender = render
	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}

	r.Use(middleware.LoadProfile(d.DB))
	RegisterRoutes(r, cfg, d)
	return r, nil
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Dependencies) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.DB, cfg.DevLogin)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Hub, d.Logger)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)

	r.GET("/healthz", handlers.Health(d.DB))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	// 页面 (Pages)
	r.GET("/p/:id", commentHandler.Page) // 帖子详情和评论
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/p/:id/comment", commentHandler.CreateForm) // 发表评论或回复
		authorized.DELETE("/comment/:id", commentHandler.DeleteHTMX) // 删除评论
	}

	// JSON API
	api := r.Group("/api")
	{
		api.POST("/session", authHandler.Login)
		api.DELETE("/session", authHandler.Logout)

		api.GET("/posts/:id/comments", commentHandler.List)
		api.POST("/posts/:id/comments", commentHandler.Create)
		api.GET("/posts/:id/comments/live", commentHandler.Live)
		api.DELETE("/comments/:id", commentHandler.Delete)
	}

	me := r.Group("/api")
	me.Use(middleware.AuthRequired())
	{
		me.GET("/me", commentHandler.Me)
		me.GET("/notifications", notificationHandler.List)
		me.POST("/notifications/:id/read", notificationHandler.Read)
		me.POST("/notifications/read-all", notificationHandler.ReadAll)
	}
}
