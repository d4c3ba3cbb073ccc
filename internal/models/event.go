package models

import "time"

// Audit event types.
const (
	EventPumpStart         = "PUMP_START"
	EventPumpStop          = "PUMP_STOP"
	EventSafetyStop        = "SAFETY_STOP"
	EventPresetActivated   = "PRESET_ACTIVATED"
	EventPresetDeactivated = "PRESET_DEACTIVATED"
	EventAlarm             = "ALARM"
)

// IrrigationEvent is a single audit-log entry. Every controller transition
// and preset activation is recorded for later inspection.
type IrrigationEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
