package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusStarted = "started"
	statusStopped = "stopped"
)

// @Summary      Start pump manually
// @Description  Manual runs take precedence over schedules until stopped.
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, pump"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string  "cooldown"
// @Failure      502  {object}  map[string]string  "actuator"
// @Router       /api/v1/pump/start [post]
// @Security     BearerAuth
func (h *Handler) startPump(c *gin.Context) {
	if err := h.services.Pump.StartManual(c.Request.Context()); err != nil {
		h.respondErr(c, "pump_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStarted, "pump": h.services.Pump.Status()})
}

// @Summary      Stop pump manually
// @Description  Stopping an already stopped pump is a no-op success.
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string  "actuator"
// @Router       /api/v1/pump/stop [post]
// @Security     BearerAuth
func (h *Handler) stopPump(c *gin.Context) {
	if err := h.services.Pump.StopManual(c.Request.Context()); err != nil {
		h.respondErr(c, "pump_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStopped, "pump": h.services.Pump.Status()})
}

// @Summary      Get pump status
// @Tags         pump
// @Produce      json
// @Success      200  {object}  service.PumpStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/pump/status [get]
// @Security     BearerAuth
func (h *Handler) pumpStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Pump.Status())
}

// @Summary      Get controller tuning constants
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/pump/config [get]
// @Security     BearerAuth
func (h *Handler) pumpConfig(c *gin.Context) {
	cfg := h.services.Pump.Config()
	c.JSON(http.StatusOK, gin.H{
		"evaluation_interval_seconds": cfg.EvalInterval.Seconds(),
		"max_run_duration_seconds":    cfg.MaxRunDuration.Seconds(),
		"cooldown_seconds":            cfg.Cooldown.Seconds(),
	})
}
