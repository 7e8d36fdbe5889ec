package report

import (
	"github.com/gin-gonic/gin"

	"github.com/foodschool/canteen-bot/internal/loaders"
)

func RegisterRoutes(router *gin.Engine, db *loaders.PostgresClient) {
	svc := NewService(db)
	ctrl := NewController(svc)
	router.GET("/api/report", ctrl.Get)
}
