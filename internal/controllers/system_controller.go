package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foodschool/canteen-bot/internal/config"
)

type SystemController struct {
	cfg *config.Config
}

func NewSystemController(cfg *config.Config) *SystemController {
	return &SystemController{cfg: cfg}
}

// Status godoc
// @Summary Get system status
// @Description Get current system status information
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/status [get]
func (s *SystemController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     s.cfg.ServiceName,
		"version":     "1.0.0",
		"environment": s.cfg.Environment,
		"hostname":    s.cfg.Hostname,
		"timestamp":   time.Now().UTC(),
	})
}

// Info godoc
// @Summary Get system information
// @Description Get detailed system information
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/info [get]
func (s *SystemController) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":      s.cfg.ServiceName,
		"version":      "1.0.0",
		"environment":  s.cfg.Environment,
		"hostname":     s.cfg.Hostname,
		"log_level":    s.cfg.LogLevel,
		"rating_scale": s.cfg.ScaleMax,
		"timestamp":    time.Now().UTC(),
	})
}
