package sensors

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"smart_irrigation/internal/clock"
	"smart_irrigation/internal/models"
)

// Poller returns typed sensor readings on demand. Implementations must be
// safe for concurrent use; the monitoring service polls on an interval.
type Poller interface {
	Read() models.SensorReading
}

// Simulation base values and rates.
const (
	baseTempC        = 22.0
	baseHumidity     = 50.0
	baseSoilMoisture = 60.0
	baseWaterLevel   = 75.0

	maxDriftPerMin = 3.0  // max random walk per elapsed minute
	drainPerSecond = 0.05 // tank % drained per second while the pump runs
)

// Simulated produces plausible readings when no hardware is attached:
// temperature/humidity/soil moisture random-walk around their base values and
// the tank level drains while the pump is running.
type Simulated struct {
	mu       sync.Mutex
	clk      clock.Clock
	rng      *rand.Rand
	lastRead time.Time

	temp     float64
	humidity float64
	moisture float64
	tank     float64

	pumpRunning func() bool
}

// NewSimulated seeds the simulation; pumpRunning may be nil when the tank
// drain coupling is not wanted.
func NewSimulated(clk clock.Clock, pumpRunning func() bool) *Simulated {
	return &Simulated{
		clk:         clk,
		rng:         rand.New(rand.NewSource(clk.Now().UnixNano())),
		lastRead:    clk.Now(),
		temp:        baseTempC,
		humidity:    baseHumidity,
		moisture:    baseSoilMoisture,
		tank:        baseWaterLevel,
		pumpRunning: pumpRunning,
	}
}

func (s *Simulated) Read() models.SensorReading {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	elapsed := now.Sub(s.lastRead).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	s.lastRead = now

	// more variation the longer since the last read, capped
	drift := elapsed / 60.0 * maxDriftPerMin
	if drift > maxDriftPerMin {
		drift = maxDriftPerMin
	}
	s.temp += s.rng.Float64()*2*drift - drift
	s.humidity = clampPct(s.humidity + s.rng.Float64()*2*drift - drift)
	s.moisture = clampPct(s.moisture + s.rng.Float64()*2*drift - drift)

	if s.pumpRunning != nil && s.pumpRunning() {
		s.tank = clampPct(s.tank - drainPerSecond*elapsed)
		// watering raises soil moisture faster than the ambient walk
		s.moisture = clampPct(s.moisture + 2*drainPerSecond*elapsed)
	}

	return models.SensorReading{
		Temperature:  round1(s.temp),
		Humidity:     round1(s.humidity),
		SoilMoisture: round1(s.moisture),
		WaterLevel:   round1(s.tank),
		Connected:    false, // simulated readings are flagged as such
		TakenAt:      now,
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
