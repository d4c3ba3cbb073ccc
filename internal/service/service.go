package service

import (
	"context"
	"time"

	"smart_irrigation/internal/clock"
	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/pump"
	"smart_irrigation/internal/repository"
	"smart_irrigation/internal/sensors"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Presets exposes preset/schedule CRUD and activation.
type Presets interface {
	Create(ctx context.Context, name, description string) (models.Preset, error)
	Update(ctx context.Context, id int64, params PresetParams) (models.Preset, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (models.Preset, error)
	List(ctx context.Context) ([]models.Preset, error)
	Activate(ctx context.Context, id int64) (models.Preset, error)
	Deactivate(ctx context.Context) error
	AddSchedule(ctx context.Context, presetID int64, params ScheduleParams) (models.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, params ScheduleParams) (models.Schedule, error)
	RemoveSchedule(ctx context.Context, id int64) error
}

// PumpControl is the manual command surface of the decision loop.
type PumpControl interface {
	StartManual(ctx context.Context) error
	StopManual(ctx context.Context) error
	Status() PumpStatus
	Config() ControllerConfig
}

// Monitoring exposes the latest sensor snapshot.
type Monitoring interface {
	Latest(ctx context.Context) (models.SensorReading, error)
}

// EventLog exposes the append-only audit log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.IrrigationEvent, error)
}

// RunHistory exposes persisted pump runs.
type RunHistory interface {
	Recent(ctx context.Context, limit int) ([]models.IrrigationRun, error)
}

// Service aggregates all sub-services. Handlers depend on the interface
// fields; the concrete Controller and Monitor are kept for running their
// background loops.
type Service struct {
	Presets Presets
	Pump    PumpControl
	Monitor Monitoring
	Events  EventLog
	Runs    RunHistory
	Auth    Authorization

	Controller     *Controller
	MonitorService *MonitorService
}

// Deps bundles everything NewService needs to wire the core.
type Deps struct {
	Repos      *repository.Repository
	Clock      clock.Clock
	Driver     pump.Driver
	Notifier   *notifier.Notifier
	Logger     *logger.Logger
	Controller ControllerConfig
	Poller     sensors.Poller
}

// NewService wires repositories and collaborators into concrete services.
func NewService(d Deps) *Service {
	ctrl := NewController(d.Controller, d.Clock, d.Driver, d.Repos, d.Notifier, d.Logger)
	monitor := NewMonitorService(d.Poller, d.Repos.Sensors, d.Notifier, d.Logger)
	ctrl.SetWaterLevelSource(monitor.WaterLevel)

	return &Service{
		Presets:        NewPresetService(d.Repos.Presets, d.Repos.Events, d.Notifier, ctrl, d.Logger),
		Pump:           ctrl,
		Monitor:        monitor,
		Events:         NewEventLogService(d.Repos.Events),
		Runs:           NewRunHistoryService(d.Repos.Runs),
		Auth:           NewAuthService(d.Repos.Auth),
		Controller:     ctrl,
		MonitorService: monitor,
	}
}

// Run starts the decision loop and the sensor poller and blocks until ctx is
// canceled.
func (s *Service) Run(ctx context.Context, sensorInterval time.Duration) {
	go s.MonitorService.Run(ctx, sensorInterval)
	s.Controller.Run(ctx)
}
