package models

import "time"

// SensorReading is one polled snapshot of the garden sensors. Connected is
// false when the reading comes from the simulated fallback instead of real
// hardware.
type SensorReading struct {
	Temperature  float64   `json:"temperature"`   // °C
	Humidity     float64   `json:"humidity"`      // %
	SoilMoisture float64   `json:"soil_moisture"` // %
	WaterLevel   float64   `json:"water_level"`   // % of tank
	Connected    bool      `json:"connected"`
	TakenAt      time.Time `json:"taken_at"`
}
