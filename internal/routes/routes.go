package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodschool/canteen-bot/internal/api/report"
	"github.com/foodschool/canteen-bot/internal/config"
	"github.com/foodschool/canteen-bot/internal/loaders"
	"github.com/foodschool/canteen-bot/internal/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *loaders.PostgresClient, cfg *config.Config) {
	// Apply global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Setup route groups
	SetupHealthRoutes(router, db, cfg)
	report.RegisterRoutes(router, db)
	setup404Handler(router)
}

func setup404Handler(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested resource was not found",
			"path":    c.Request.URL.Path,
		})
	})
}
