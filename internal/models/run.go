package models

import "time"

// IrrigationRun is one completed (or in-progress) pump run, persisted for
// reporting. A row is opened on start and closed with the measured duration
// on stop.
type IrrigationRun struct {
	ID              int64      `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	Source          string     `json:"source"` // manual | scheduled
	DurationSeconds float64    `json:"duration_seconds"`
	WaterLevel      float64    `json:"water_level"` // % at start
}
