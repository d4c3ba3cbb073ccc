package models

import "time"

// AnyDay matches every weekday when used as Schedule.DayOfWeek.
const AnyDay = -1

// Preset is a named bundle of irrigation schedules. At most one preset is
// active across the whole store; the active flag flips only through
// activate/deactivate, never through a plain update.
type Preset struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	Schedules   []Schedule `json:"schedules"`
}

// Schedule is a recurring watering window owned by a preset. It only has
// effect while its parent preset is active and Enabled is true.
type Schedule struct {
	ID              int64     `json:"id"`
	PresetID        int64     `json:"preset_id"`
	DayOfWeek       int       `json:"day_of_week"`      // -1 = any, 0=Sunday .. 6=Saturday
	StartTime       string    `json:"start_time"`       // "HH:MM", server-local
	DurationSeconds int       `json:"duration_seconds"` // > 0
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
}
