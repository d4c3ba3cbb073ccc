package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// @Summary      Latest sensor snapshot
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  models.SensorReading
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sensors/latest [get]
// @Security     BearerAuth
func (h *Handler) latestSensors(c *gin.Context) {
	reading, err := h.services.Monitor.Latest(c.Request.Context())
	if err != nil {
		h.respondErr(c, "sensors_latest_failed", err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

// @Summary      Server time
// @Description  Controller wall clock, for clients rendering schedule windows.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /time [get]
func (h *Handler) serverTime(c *gin.Context) {
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"iso":         now.Format(time.RFC3339),
		"unix":        now.Unix(),
		"day_of_week": int(now.Weekday()),
		"clock":       now.Format("15:04"),
	})
}
