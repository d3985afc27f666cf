package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abdel7517/ragdocs/internal/http/handlers"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ProgressHandler *handlers.ProgressHandler
	HealthHandler   *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	if cfg.HealthHandler != nil {
		router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := router.Group("/api")
	{
		if cfg.DocumentHandler != nil {
			api.POST("/documents/upload", cfg.DocumentHandler.Upload)
			api.GET("/documents", cfg.DocumentHandler.List)
			api.DELETE("/documents/:document_id", cfg.DocumentHandler.Delete)
		}
		if cfg.ProgressHandler != nil {
			api.GET("/documents/progress/:document_id", cfg.ProgressHandler.Stream)
		}
	}

	return router
}
