package service

import (
	"context"
	"sync"
	"time"

	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/repository"
	"smart_irrigation/internal/sensors"
)

const sensorStoreTimeout = 2 * time.Second

// MonitorService polls the sensor suite on an interval, caches the latest
// reading, persists rows and publishes sensor_update events.
type MonitorService struct {
	poller sensors.Poller
	repo   repository.SensorRepo
	notif  *notifier.Notifier
	log    *logger.Logger

	mu     sync.RWMutex
	latest *models.SensorReading
}

func NewMonitorService(poller sensors.Poller, repo repository.SensorRepo, notif *notifier.Notifier, log *logger.Logger) *MonitorService {
	return &MonitorService{poller: poller, repo: repo, notif: notif, log: log}
}

// Run polls until ctx is canceled. Persistence faults are logged and do not
// interrupt polling.
func (s *MonitorService) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	s.sample(ctx) // first reading immediately
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sample(ctx)
		}
	}
}

func (s *MonitorService) sample(ctx context.Context) {
	reading := s.poller.Read()

	s.mu.Lock()
	s.latest = &reading
	s.mu.Unlock()

	storeCtx, cancel := context.WithTimeout(ctx, sensorStoreTimeout)
	if err := s.repo.Insert(storeCtx, reading); err != nil && s.log != nil {
		s.log.Warnw("sensor_reading_store_failed", "err", err)
	}
	cancel()

	if s.notif != nil {
		s.notif.Publish(notifier.Event{
			Kind: notifier.KindSensorUpdate,
			At:   reading.TakenAt,
			Data: reading,
		})
	}
}

// Latest returns the cached reading, falling back to the store after a
// restart. Returns a zero reading when nothing was ever sampled.
func (s *MonitorService) Latest(ctx context.Context) (models.SensorReading, error) {
	s.mu.RLock()
	cached := s.latest
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	stored, err := s.repo.Latest(ctx)
	if err != nil {
		return models.SensorReading{}, err
	}
	if stored == nil {
		return models.SensorReading{}, nil
	}
	return *stored, nil
}

// WaterLevel reports the cached tank level; 0 when no reading exists yet.
// Used by the controller when opening run history rows.
func (s *MonitorService) WaterLevel() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return 0
	}
	return s.latest.WaterLevel
}
