package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smart_irrigation/internal/models"
)

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite { return &SensorSQLite{db: db} }

var _ SensorRepo = (*SensorSQLite)(nil)

func (r *SensorSQLite) Insert(ctx context.Context, reading models.SensorReading) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (taken_at, temperature, humidity, soil_moisture, water_level, connected)
		VALUES (?, ?, ?, ?, ?, ?)
	`, reading.TakenAt.UTC(), reading.Temperature, reading.Humidity,
		reading.SoilMoisture, reading.WaterLevel, reading.Connected)
	if err != nil {
		return fmt.Errorf("insert sensor reading: %w", err)
	}
	return nil
}

// Latest returns the newest reading, or (nil, nil) when none were recorded.
func (r *SensorSQLite) Latest(ctx context.Context) (*models.SensorReading, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT taken_at, temperature, humidity, soil_moisture, water_level, connected
		FROM sensor_readings ORDER BY taken_at DESC LIMIT 1
	`)
	var reading models.SensorReading
	if err := row.Scan(&reading.TakenAt, &reading.Temperature, &reading.Humidity,
		&reading.SoilMoisture, &reading.WaterLevel, &reading.Connected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest sensor reading: %w", err)
	}
	reading.TakenAt = reading.TakenAt.UTC()
	return &reading, nil
}
