package service

import "time"

// PresetParams carries optional preset fields for updates; nil means "leave
// unchanged".
type PresetParams struct {
	Name        *string
	Description *string
}

// ScheduleParams carries schedule fields. Pointers are optional on update.
type ScheduleParams struct {
	DayOfWeek       *int // -1 = any, 0=Sunday .. 6=Saturday
	StartTime       *string
	DurationSeconds *int
	Enabled         *bool
}

// LogFilter selects audit events by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "PUMP_START", "PUMP_STOP", "SAFETY_STOP", ...
}

// PumpStatus is the read-only snapshot returned to API consumers.
type PumpStatus struct {
	Running         bool    `json:"running"`
	Source          string  `json:"source"` // none | manual | scheduled
	DurationSeconds float64 `json:"duration_seconds"`
	ScheduleID      int64   `json:"schedule_id,omitempty"`
	Degraded        bool    `json:"degraded,omitempty"`
}
