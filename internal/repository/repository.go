package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_irrigation/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// PresetRepo stores presets and their schedules. Activate is the only way
// the active flag changes and must be atomic across the whole table.
type PresetRepo interface {
	Create(ctx context.Context, name, description string) (models.Preset, error)
	Update(ctx context.Context, id int64, name, description *string) (models.Preset, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Preset, error)
	List(ctx context.Context) ([]models.Preset, error)
	FindByName(ctx context.Context, name string) (*models.Preset, error)

	Activate(ctx context.Context, id int64) (models.Preset, error)
	Deactivate(ctx context.Context) error
	GetActive(ctx context.Context) (*models.Preset, error)

	AddSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error)
	UpdateSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// EventRepo is the append-only audit log.
type EventRepo interface {
	Append(ctx context.Context, e models.IrrigationEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.IrrigationEvent, error)
}

// RunRepo records pump run history for reporting.
type RunRepo interface {
	StartRun(ctx context.Context, r models.IrrigationRun) (int64, error)
	FinishRun(ctx context.Context, id int64, stoppedAt time.Time, durationSeconds float64) error
	List(ctx context.Context, limit int) ([]models.IrrigationRun, error)
}

// SensorRepo persists polled readings.
type SensorRepo interface {
	Insert(ctx context.Context, r models.SensorReading) error
	Latest(ctx context.Context) (*models.SensorReading, error)
}

type Repository struct {
	Presets PresetRepo
	Events  EventRepo
	Runs    RunRepo
	Sensors SensorRepo
	Auth    Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Presets: NewPresetSQLite(db),
		Events:  NewEventSQLite(db),
		Runs:    NewRunSQLite(db),
		Sensors: NewSensorSQLite(db),
		Auth:    NewUserRepository(db),
	}
}
