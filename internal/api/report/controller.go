package report

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodschool/canteen-bot/internal/disk"
	"github.com/foodschool/canteen-bot/internal/utils"
)

type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// Get serves GET /api/report?date=DD.MM.YYYY. The date defaults to the
// canteen's current day.
func (c *Controller) Get(ctx *gin.Context) {
	now := disk.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if raw := ctx.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":     "bad_request",
				"message":   "date must be in DD.MM.YYYY format",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		date = parsed
	}

	res, err := c.svc.GetDayReport(ctx.Request.Context(), date)
	if err != nil {
		utils.Zlog.Warn("report query failed",
			zap.String("date", date.Format(dateLayout)),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":     "report_error",
			"message":   err.Error(),
			"timestamp": time.Now().UTC(),
		})
		return
	}

	if idVal, exists := ctx.Get("request_id"); exists {
		if rid, ok := idVal.(string); ok {
			res.RequestID = rid
		}
	}
	ctx.JSON(http.StatusOK, res)
}
