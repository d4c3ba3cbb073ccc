package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart_irrigation/internal/clock"
	"smart_irrigation/internal/metrics"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/pump"
	"smart_irrigation/internal/repository"

	"smart_irrigation/internal/logger"
)

// ControllerConfig collects the tuning knobs exposed to operators.
type ControllerConfig struct {
	EvalInterval   time.Duration `json:"evaluation_interval_seconds" swaggertype:"integer"`
	MaxRunDuration time.Duration `json:"max_run_duration_seconds" swaggertype:"integer"`
	Cooldown       time.Duration `json:"cooldown_seconds" swaggertype:"integer"`

	// StoreTimeout bounds persistence reads inside a tick; a timeout is a
	// transient fault retried on the next tick.
	StoreTimeout time.Duration `json:"-"`
	// ActuatorFaultLimit is how many consecutive start failures degrade the
	// controller to a read-only/alarm state.
	ActuatorFaultLimit int `json:"-"`
}

// DefaultControllerConfig matches the documented defaults: 2s evaluation,
// 30min safety ceiling, no cooldown unless the hardware requires one.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		EvalInterval:       2 * time.Second,
		MaxRunDuration:     1800 * time.Second,
		Cooldown:           0,
		StoreTimeout:       2 * time.Second,
		ActuatorFaultLimit: 3,
	}
}

// command is one manual RunIntent serialized into the decision loop.
type command struct {
	intent models.RunIntent
	reply  chan error
}

// Controller owns the pump's authoritative run/stop decision. One goroutine
// (Run) is the only writer of the pump state and the only caller of driver
// mutations; manual commands from the transport are queued into that loop and
// applied ahead of the next scheduled tick.
type Controller struct {
	cfg     ControllerConfig
	clk     clock.Clock
	driver  pump.Driver
	presets repository.PresetRepo
	events  repository.EventRepo
	runs    repository.RunRepo
	notif   *notifier.Notifier
	log     *logger.Logger

	commands chan command
	poke     chan struct{}

	mu    sync.RWMutex
	state models.PumpState

	// loop-private bookkeeping (only touched by Run's goroutine)
	runID       int64      // open history row, 0 when none
	curExpires  *time.Time // window end of the current scheduled run
	startFaults int        // consecutive driver start failures

	// after a safety stop of a scheduled run the same schedule must not
	// restart inside the window it already exhausted
	suppressedSchedule int64
	suppressedUntil    time.Time

	// waterLevel supplies the tank level recorded on run history rows;
	// optional.
	waterLevel func() float64
}

func NewController(
	cfg ControllerConfig,
	clk clock.Clock,
	driver pump.Driver,
	repos *repository.Repository,
	notif *notifier.Notifier,
	log *logger.Logger,
) *Controller {
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = DefaultControllerConfig().EvalInterval
	}
	if cfg.MaxRunDuration <= 0 {
		cfg.MaxRunDuration = DefaultControllerConfig().MaxRunDuration
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultControllerConfig().StoreTimeout
	}
	if cfg.ActuatorFaultLimit <= 0 {
		cfg.ActuatorFaultLimit = DefaultControllerConfig().ActuatorFaultLimit
	}
	if log == nil {
		log = logger.Get(logger.ErrorLevel)
	}
	return &Controller{
		cfg:      cfg,
		clk:      clk,
		driver:   driver,
		presets:  repos.Presets,
		events:   repos.Events,
		runs:     repos.Runs,
		notif:    notif,
		log:      log,
		commands: make(chan command),
		poke:     make(chan struct{}, 1),
		state:    models.PumpState{Source: models.SourceNone},
	}
}

// SetWaterLevelSource wires the sensor snapshot used on run history rows.
// Must be called before Run.
func (c *Controller) SetWaterLevelSource(fn func() float64) { c.waterLevel = fn }

// Config returns the tuning constants.
func (c *Controller) Config() ControllerConfig { return c.cfg }

// Status returns a snapshot for API consumers; never a shared reference.
func (c *Controller) Status() PumpStatus {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()

	status := PumpStatus{
		Running:    st.Running,
		Source:     st.Source,
		ScheduleID: st.ScheduleID,
		Degraded:   st.Degraded,
	}
	if st.Running && st.StartedAt != nil {
		status.DurationSeconds = c.clk.Now().Sub(*st.StartedAt).Seconds()
	}
	return status
}

// State returns a copy of the full pump state.
func (c *Controller) State() models.PumpState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// StartManual queues a manual start and waits for the loop's verdict.
func (c *Controller) StartManual(ctx context.Context) error {
	return c.submit(ctx, models.RunIntent{WantOn: true, Reason: models.ReasonManualStart})
}

// StopManual queues a manual stop. Stopping an already-stopped pump is a
// no-op success.
func (c *Controller) StopManual(ctx context.Context) error {
	return c.submit(ctx, models.RunIntent{WantOn: false, Reason: models.ReasonManualStop})
}

// Poke requests an immediate evaluation ahead of the next tick; used after
// preset activation and schedule mutations so the new configuration takes
// effect before any further schedule decision.
func (c *Controller) Poke() {
	select {
	case c.poke <- struct{}{}:
	default: // one pending poke is enough
	}
}

func (c *Controller) submit(ctx context.Context, intent models.RunIntent) error {
	cmd := command{intent: intent, reply: make(chan error, 1)}
	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the decision loop. It exits when ctx is canceled, issuing a final
// stop if the pump is still on so water is never left running.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case cmd := <-c.commands:
			cmd.reply <- c.applyManual(cmd.intent)
		case <-c.poke:
			c.tick(ctx)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one evaluation: safety ceiling first, then the schedule decision
// against the active preset.
func (c *Controller) tick(ctx context.Context) {
	now := c.clk.Now()

	if c.enforceSafety(now) {
		// a safety stop consumed this tick
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	active, err := c.presets.GetActive(loadCtx)
	cancel()
	if err != nil {
		// transient persistence fault: the next tick retries
		c.log.Warnw("active_preset_load_failed", "err", err)
		return
	}

	var schedules []models.Schedule
	if active != nil {
		schedules = active.Schedules
	}
	c.applySchedule(Evaluate(schedules, now, c.State()), now)
}

// applyManual processes one queued manual command.
func (c *Controller) applyManual(intent models.RunIntent) error {
	now := c.clk.Now()
	st := c.State()

	switch intent.Reason {
	case models.ReasonManualStart:
		if st.Running {
			if st.Source == models.SourceManual {
				return nil // already running manually
			}
			// manual takes over a scheduled run: the source flips so a
			// later schedule_end cannot stop it; started_at is kept so the
			// safety ceiling still measures the real run time
			c.mu.Lock()
			c.state.Source = models.SourceManual
			c.state.ScheduleID = 0
			c.mu.Unlock()
			c.curExpires = nil
			c.log.Infow("manual_takeover", "prev_source", models.SourceScheduled)
			c.publishStatus(now)
			return nil
		}
		if err := c.checkCooldown(now); err != nil {
			return err // fail loud so the caller can inform the user
		}
		return c.startPump(now, models.SourceManual, 0, nil)

	case models.ReasonManualStop:
		if !st.Running {
			return nil // idempotent
		}
		return c.stopPump(now, models.ReasonManualStop)

	default:
		return fmt.Errorf("%w: unexpected manual intent %q", ErrValidation, intent.Reason)
	}
}

// applySchedule reconciles the evaluator's intent with the current state.
func (c *Controller) applySchedule(intent models.RunIntent, now time.Time) {
	st := c.State()

	if intent.WantOn {
		if st.Running {
			if st.Source == models.SourceManual {
				// manual always wins; log, do not apply
				c.log.Infow("schedule_start_ignored_manual_run", "schedule_id", intent.ScheduleID)
				return
			}
			if st.ScheduleID != intent.ScheduleID {
				// overlap winner changed mid-run: retarget without
				// actuator churn
				c.mu.Lock()
				c.state.ScheduleID = intent.ScheduleID
				c.mu.Unlock()
				c.curExpires = intent.ExpiresAt
			}
			return
		}
		if intent.ScheduleID == c.suppressedSchedule && now.Before(c.suppressedUntil) {
			// this window was already cut short by a safety stop
			return
		}
		if err := c.checkCooldown(now); err != nil {
			// scheduled starts are dropped silently and retried next tick
			c.log.Debugw("schedule_start_in_cooldown", "schedule_id", intent.ScheduleID)
			return
		}
		if st.Degraded {
			return // alarm already raised; stay read-only
		}
		if err := c.startPump(now, models.SourceScheduled, intent.ScheduleID, intent.ExpiresAt); err != nil {
			c.log.Errorw("schedule_start_failed", "err", err, "schedule_id", intent.ScheduleID)
		}
		return
	}

	// want off: only a scheduled run is stopped by the evaluator
	if st.Running && st.Source == models.SourceScheduled {
		if err := c.stopPump(now, models.ReasonScheduleEnd); err != nil {
			c.log.Errorw("schedule_stop_failed", "err", err)
		}
	}
}

// enforceSafety forces a stop once the run exceeds the ceiling. It cannot be
// overridden; a failed driver stop is retried on every subsequent tick.
func (c *Controller) enforceSafety(now time.Time) bool {
	st := c.State()
	if !st.Running || st.StartedAt == nil {
		return false
	}
	elapsed := now.Sub(*st.StartedAt)
	if elapsed < c.cfg.MaxRunDuration {
		return false
	}

	if st.Source == models.SourceScheduled && c.curExpires != nil {
		c.suppressedSchedule = st.ScheduleID
		c.suppressedUntil = *c.curExpires
	}

	if err := c.stopPump(now, models.ReasonSafetyStop); err != nil {
		c.log.Errorw("safety_stop_failed", "err", err, "elapsed_s", elapsed.Seconds())
		return true
	}

	metrics.SafetyStops.Inc()
	c.notif.Publish(notifier.Event{
		Kind: notifier.KindSafetyStop,
		At:   now,
		Data: map[string]any{
			"reason":          "max run duration exceeded",
			"elapsed_seconds": elapsed.Seconds(),
			"limit_seconds":   c.cfg.MaxRunDuration.Seconds(),
			"source":          st.Source,
		},
	})
	c.log.Warnw("safety_stop", "elapsed_s", elapsed.Seconds(), "limit_s", c.cfg.MaxRunDuration.Seconds())
	return true
}

func (c *Controller) checkCooldown(now time.Time) error {
	if c.cfg.Cooldown <= 0 {
		return nil
	}
	st := c.State()
	if st.LastStopAt == nil {
		return nil
	}
	remaining := c.cfg.Cooldown - now.Sub(*st.LastStopAt)
	if remaining > 0 {
		return fmt.Errorf("%w: %.0fs remaining", ErrCooldown, remaining.Seconds())
	}
	return nil
}

// startPump drives the actuator and, only on confirmed success, commits the
// new state, opens a history row and emits events.
func (c *Controller) startPump(now time.Time, source string, scheduleID int64, expiresAt *time.Time) error {
	if c.State().Degraded {
		return fmt.Errorf("%w: controller degraded, starts disabled", ErrActuator)
	}

	if err := c.driver.Start(); err != nil {
		metrics.ActuatorFaults.Inc()
		c.startFaults++
		c.log.Errorw("pump_start_failed", "err", err, "consecutive", c.startFaults)
		if c.startFaults >= c.cfg.ActuatorFaultLimit {
			c.degrade(now, err)
		}
		return fmt.Errorf("%w: %v", ErrActuator, err)
	}
	c.startFaults = 0

	started := now
	c.mu.Lock()
	c.state.Running = true
	c.state.StartedAt = &started
	c.state.Source = source
	c.state.ScheduleID = scheduleID
	c.mu.Unlock()
	c.curExpires = expiresAt

	metrics.PumpStarts.WithLabelValues(source).Inc()
	metrics.PumpRunning.Set(1)

	c.openRun(now, source)
	c.audit(now, models.EventPumpStart, "Pump started ("+source+")", map[string]any{
		"source":      source,
		"schedule_id": scheduleID,
	})
	c.publishStatus(now)
	c.log.Infow("pump_started", "source", source, "schedule_id", scheduleID)
	return nil
}

// stopPump drives the actuator off and commits the stopped state. The state
// is left untouched when the driver does not confirm.
func (c *Controller) stopPump(now time.Time, reason string) error {
	st := c.State()

	if err := c.driver.Stop(); err != nil {
		metrics.ActuatorFaults.Inc()
		c.log.Errorw("pump_stop_failed", "err", err, "reason", reason)
		return fmt.Errorf("%w: %v", ErrActuator, err)
	}

	var elapsed float64
	if st.StartedAt != nil {
		elapsed = now.Sub(*st.StartedAt).Seconds()
	}

	stopped := now
	c.mu.Lock()
	c.state.Running = false
	c.state.StartedAt = nil
	c.state.Source = models.SourceNone
	c.state.ScheduleID = 0
	c.state.LastStopAt = &stopped
	c.mu.Unlock()
	c.curExpires = nil

	metrics.PumpStops.WithLabelValues(reason).Inc()
	metrics.PumpRunning.Set(0)

	c.closeRun(now, elapsed)
	typ := models.EventPumpStop
	if reason == models.ReasonSafetyStop {
		typ = models.EventSafetyStop
	}
	c.audit(now, typ, "Pump stopped ("+reason+")", map[string]any{
		"reason":           reason,
		"duration_seconds": elapsed,
	})
	c.publishStatus(now)
	c.log.Infow("pump_stopped", "reason", reason, "duration_s", elapsed)
	return nil
}

// degrade switches the controller to the read-only alarm state: starts are
// refused, stops remain attempted opportunistically.
func (c *Controller) degrade(now time.Time, cause error) {
	c.mu.Lock()
	already := c.state.Degraded
	c.state.Degraded = true
	c.mu.Unlock()
	if already {
		return
	}
	c.audit(now, models.EventAlarm, "Pump driver unreachable, controller degraded", map[string]any{
		"cause": cause.Error(),
	})
	c.notif.Publish(notifier.Event{
		Kind: notifier.KindAlarm,
		At:   now,
		Data: map[string]any{"message": "pump driver unreachable", "cause": cause.Error()},
	})
	c.log.Errorw("controller_degraded", "cause", cause)
}

func (c *Controller) shutdown() {
	if !c.State().Running {
		return
	}
	now := c.clk.Now()
	if err := c.stopPump(now, models.ReasonManualStop); err != nil {
		c.log.Errorw("shutdown_stop_failed", "err", err)
		return
	}
	c.log.Infow("pump_stopped_on_shutdown")
}

// openRun starts a history row; history faults never block the actuator.
func (c *Controller) openRun(now time.Time, source string) {
	var level float64
	if c.waterLevel != nil {
		level = c.waterLevel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
	defer cancel()
	id, err := c.runs.StartRun(ctx, models.IrrigationRun{
		StartedAt:  now,
		Source:     source,
		WaterLevel: level,
	})
	if err != nil {
		c.log.Warnw("run_history_open_failed", "err", err)
		return
	}
	c.runID = id
}

func (c *Controller) closeRun(now time.Time, elapsed float64) {
	if c.runID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
	defer cancel()
	if err := c.runs.FinishRun(ctx, c.runID, now, elapsed); err != nil {
		c.log.Warnw("run_history_close_failed", "err", err)
	}
	c.runID = 0
}

func (c *Controller) audit(now time.Time, typ, desc string, meta map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
	defer cancel()
	err := c.events.Append(ctx, models.IrrigationEvent{
		OccurredAt:  now,
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		c.log.Warnw("audit_append_failed", "err", err, "type", typ)
	}
}

func (c *Controller) publishStatus(now time.Time) {
	c.notif.Publish(notifier.Event{
		Kind: notifier.KindPumpStatus,
		At:   now,
		Data: c.Status(),
	})
}
