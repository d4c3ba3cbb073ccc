package models

import "time"

// Pump run sources.
const (
	SourceNone      = "none"
	SourceManual    = "manual"
	SourceScheduled = "scheduled"
)

// RunIntent reasons.
const (
	ReasonManualStart   = "manual_start"
	ReasonManualStop    = "manual_stop"
	ReasonScheduleStart = "schedule_start"
	ReasonScheduleEnd   = "schedule_end"
	ReasonSafetyStop    = "safety_stop"
)

// PumpState is the controller-owned snapshot of the actuator. Exactly one
// exists per process; only the decision loop mutates it, everyone else reads
// copies.
type PumpState struct {
	Running    bool       `json:"running"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	Source     string     `json:"source"` // none | manual | scheduled
	LastStopAt *time.Time `json:"last_stop_at,omitempty"`
	ScheduleID int64      `json:"schedule_id,omitempty"` // set while source == scheduled
	Degraded   bool       `json:"degraded,omitempty"`    // actuator declared unreachable
}

// RunIntent is the ephemeral decision value consumed by the controller on
// each evaluation tick.
type RunIntent struct {
	WantOn     bool
	Reason     string // manual_start | manual_stop | schedule_start | schedule_end | safety_stop
	ScheduleID int64
	ExpiresAt  *time.Time
}
