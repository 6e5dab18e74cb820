// Package api assembles the HTTP router.
package api

import (
	"github.com/freellm/freellm-backend-go/internal/api/handlers"
	"github.com/freellm/freellm-backend-go/internal/api/middleware"
	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, h *handlers.Handlers, logger *logrus.Logger) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/conversation", h.Converse)
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id/messages", h.GetConversationMessages)
		api.DELETE("/conversations/:id", h.DeleteConversation)

		cache := api.Group("/cache")
		{
			cache.GET("/stats", h.CacheStats)
			cache.POST("/invalidate", h.CacheInvalidate)
			cache.POST("/cleanup", h.CacheCleanup)
		}

		entities := api.Group("/entities")
		{
			entities.GET("", h.ListEntities)
			entities.GET("/context", h.EntityContext)
		}
	}

	return router
}
