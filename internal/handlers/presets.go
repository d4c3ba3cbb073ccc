package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/service"

	"github.com/gin-gonic/gin"
)

const errInvalidBodyPref = "invalid body: "

// dayOfWeek accepts either an integer (-1..6) or the string "any".
type dayOfWeek struct {
	set bool
	val int
}

func (d *dayOfWeek) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if strings.EqualFold(strings.TrimSpace(s), "any") {
			d.set, d.val = true, models.AnyDay
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("day_of_week must be -1..6 or \"any\", got %q", s)
		}
		d.set, d.val = true, n
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("day_of_week must be -1..6 or \"any\"")
	}
	d.set, d.val = true, n
	return nil
}

type createPresetRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type updatePresetRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type scheduleRequest struct {
	PresetID        int64     `json:"preset_id"`
	DayOfWeek       dayOfWeek `json:"day_of_week"`
	StartTime       *string   `json:"start_time"`
	DurationSeconds *int      `json:"duration_seconds"`
	Enabled         *bool     `json:"enabled"`
}

func (r *scheduleRequest) params() service.ScheduleParams {
	p := service.ScheduleParams{
		StartTime:       r.StartTime,
		DurationSeconds: r.DurationSeconds,
		Enabled:         r.Enabled,
	}
	if r.DayOfWeek.set {
		day := r.DayOfWeek.val
		p.DayOfWeek = &day
	}
	return p
}

// paramID parses the :id path segment; writes 400 and returns false on junk.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// @Summary      Create preset
// @Tags         presets
// @Accept       json
// @Produce      json
// @Param        body  body   createPresetRequest  true  "Preset payload"
// @Success      200   {object}  models.Preset
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/presets [post]
// @Security     BearerAuth
func (h *Handler) createPreset(c *gin.Context) {
	var req createPresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	p, err := h.services.Presets.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.respondErr(c, "preset_create_failed", err, "name", req.Name)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      List presets with their schedules
// @Tags         presets
// @Produce      json
// @Success      200  {array}  models.Preset
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/presets [get]
// @Security     BearerAuth
func (h *Handler) listPresets(c *gin.Context) {
	presets, err := h.services.Presets.List(c.Request.Context())
	if err != nil {
		h.respondErr(c, "preset_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, presets)
}

// @Summary      Get one preset
// @Tags         presets
// @Produce      json
// @Param        id   path   int  true  "Preset id"
// @Success      200  {object}  models.Preset
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/presets/{id} [get]
// @Security     BearerAuth
func (h *Handler) getPreset(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.services.Presets.Get(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, "preset_get_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Update preset name/description
// @Tags         presets
// @Accept       json
// @Produce      json
// @Param        id    path   int                  true  "Preset id"
// @Param        body  body   updatePresetRequest  true  "Fields to change"
// @Success      200   {object}  models.Preset
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/presets/{id} [put]
// @Security     BearerAuth
func (h *Handler) updatePreset(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req updatePresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	p, err := h.services.Presets.Update(c.Request.Context(), id, service.PresetParams{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondErr(c, "preset_update_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Delete preset (cascades schedules; deactivates first if active)
// @Tags         presets
// @Produce      json
// @Param        id   path   int  true  "Preset id"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/presets/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deletePreset(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.services.Presets.Delete(c.Request.Context(), id); err != nil {
		h.respondErr(c, "preset_delete_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Activate preset
// @Description  Atomically deactivates every other preset.
// @Tags         presets
// @Produce      json
// @Param        id   path   int  true  "Preset id"
// @Success      200  {object}  models.Preset
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/presets/{id}/activate [post]
// @Security     BearerAuth
func (h *Handler) activatePreset(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.services.Presets.Activate(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, "preset_activate_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Deactivate the active preset
// @Description  No-op when none is active.
// @Tags         presets
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/presets/deactivate [post]
// @Security     BearerAuth
func (h *Handler) deactivatePreset(c *gin.Context) {
	if err := h.services.Presets.Deactivate(c.Request.Context()); err != nil {
		h.respondErr(c, "preset_deactivate_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Add schedule to a preset
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body   scheduleRequest  true  "Schedule payload (preset_id required)"
// @Success      200   {object}  models.Schedule
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) createSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if req.PresetID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "preset_id is required"})
		return
	}
	s, err := h.services.Presets.AddSchedule(c.Request.Context(), req.PresetID, req.params())
	if err != nil {
		h.respondErr(c, "schedule_create_failed", err, "preset_id", req.PresetID)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Update schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id    path   int              true  "Schedule id"
// @Param        body  body   scheduleRequest  true  "Fields to change"
// @Success      200   {object}  models.Schedule
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [put]
// @Security     BearerAuth
func (h *Handler) updateSchedule(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	s, err := h.services.Presets.UpdateSchedule(c.Request.Context(), id, req.params())
	if err != nil {
		h.respondErr(c, "schedule_update_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Delete schedule
// @Tags         schedules
// @Produce      json
// @Param        id   path   int  true  "Schedule id"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.services.Presets.RemoveSchedule(c.Request.Context(), id); err != nil {
		h.respondErr(c, "schedule_delete_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
