package pump

import (
	"errors"
	"sync"
	"time"

	"smart_irrigation/internal/clock"
)

// ErrRelay is returned when the underlying relay does not confirm a state
// change. Callers must not assume the pump moved.
var ErrRelay = errors.New("pump relay did not respond")

// Driver owns the single physical (or simulated) pump actuator.
//
// Start on an already-running pump and Stop on an already-stopped pump are
// both no-op successes; only a relay fault produces an error.
type Driver interface {
	Start() error
	Stop() error
	Running() bool
	Elapsed() time.Duration
}

// Simulated is a relay-backed pump stand-in used when no GPIO hardware is
// attached. FailStart/FailStop inject relay faults for tests and drills.
type Simulated struct {
	mu        sync.Mutex
	clk       clock.Clock
	running   bool
	startedAt time.Time

	failStart bool
	failStop  bool
}

// NewSimulated returns a stopped simulated pump using clk for run timing.
func NewSimulated(clk clock.Clock) *Simulated {
	return &Simulated{clk: clk}
}

func (p *Simulated) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failStart {
		return ErrRelay
	}
	if p.running {
		return nil // already on
	}
	p.running = true
	p.startedAt = p.clk.Now()
	return nil
}

func (p *Simulated) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failStop {
		return ErrRelay
	}
	if !p.running {
		return nil // already off
	}
	p.running = false
	p.startedAt = time.Time{}
	return nil
}

func (p *Simulated) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Elapsed reports how long the current run has been going, zero when off.
func (p *Simulated) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return p.clk.Now().Sub(p.startedAt)
}

// FailStart toggles relay faults on Start.
func (p *Simulated) FailStart(fail bool) {
	p.mu.Lock()
	p.failStart = fail
	p.mu.Unlock()
}

// FailStop toggles relay faults on Stop.
func (p *Simulated) FailStop(fail bool) {
	p.mu.Lock()
	p.failStop = fail
	p.mu.Unlock()
}
