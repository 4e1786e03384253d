package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfarer/pkg/metrics"
	"wayfarer/pkg/middleware"
)

func NewRouter(log *zap.Logger, m *metrics.Metrics,
	chat *ChatController,
	sessions *SessionController,
	health *HealthController) *gin.Engine {

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(log, m))
	r.Use(middleware.CORSMiddleware())

	RegisterRoutes(r, chat, sessions, health)
	return r
}

func RegisterRoutes(r *gin.Engine,
	chat *ChatController,
	sessions *SessionController,
	health *HealthController) {

	r.GET("/healthz", health.Healthz)
	r.GET("/metrics", health.Metrics)

	api := r.Group("/api")
	api.POST("/chat", chat.Chat)

	sessionGroup := api.Group("/sessions")
	sessionGroup.GET("/:id", sessions.Snapshot)
	sessionGroup.DELETE("/:id", sessions.Reset)
	sessionGroup.POST("/:id/edit", sessions.Edit)
	sessionGroup.POST("/:id/explain", sessions.Explain)
	sessionGroup.POST("/:id/export", sessions.Export)
}
