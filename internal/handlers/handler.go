package handlers

import (
	"errors"
	"net/http"

	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, event fan-out and logging.
type Handler struct {
	services *service.Service
	notif    *notifier.Notifier
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, notif *notifier.Notifier, log *logger.Logger) *Handler {
	return &Handler{services: services, notif: notif, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health and observability endpoints
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Server time for clients that align their clocks with the scheduler
	router.GET("/time", h.serverTime)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// WebSocket event stream (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerPumpRoutes(api)
		h.registerPresetRoutes(api)
		h.registerSensorRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerPumpRoutes(api *gin.RouterGroup) {
	p := api.Group("/pump")
	{
		p.POST("/start", h.startPump)
		p.POST("/stop", h.stopPump)
		p.GET("/status", h.pumpStatus)
		p.GET("/config", h.pumpConfig)
	}
}

func (h *Handler) registerPresetRoutes(api *gin.RouterGroup) {
	presets := api.Group("/presets")
	{
		presets.POST("", h.createPreset)
		presets.GET("", h.listPresets)
		presets.POST("/deactivate", h.deactivatePreset)
		presets.GET("/:id", h.getPreset)
		presets.PUT("/:id", h.updatePreset)
		presets.DELETE("/:id", h.deletePreset)
		presets.POST("/:id/activate", h.activatePreset)
	}
	schedules := api.Group("/schedules")
	{
		schedules.POST("", h.createSchedule)
		schedules.PUT("/:id", h.updateSchedule)
		schedules.DELETE("/:id", h.deleteSchedule)
	}
}

func (h *Handler) registerSensorRoutes(api *gin.RouterGroup) {
	api.GET("/sensors/latest", h.latestSensors)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
	api.GET("/runs", h.getRuns)
}

// statusFromErr maps the service error taxonomy onto HTTP codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCooldown):
		return http.StatusConflict
	case errors.Is(err, service.ErrActuator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondErr logs and writes a taxonomy-mapped error response.
func (h *Handler) respondErr(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
