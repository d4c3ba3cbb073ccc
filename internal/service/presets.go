package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/repository"
)

// Poker is the controller hook that forces an immediate re-evaluation. Any
// mutation affecting the active preset's schedules calls it so the change is
// seen before the next schedule decision.
type Poker interface {
	Poke()
}

// PresetService owns preset/schedule CRUD and the single-active invariant.
type PresetService struct {
	presets repository.PresetRepo
	events  repository.EventRepo
	notif   *notifier.Notifier
	poker   Poker
	log     *logger.Logger

	// serializes name-uniqueness checks against concurrent creates
	mu sync.Mutex
}

func NewPresetService(
	presets repository.PresetRepo,
	events repository.EventRepo,
	notif *notifier.Notifier,
	poker Poker,
	log *logger.Logger,
) *PresetService {
	return &PresetService{presets: presets, events: events, notif: notif, poker: poker, log: log}
}

// Create adds an inactive preset. The name must be non-empty and unique
// (case-insensitive).
func (s *PresetService) Create(ctx context.Context, name, description string) (models.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Preset{}, fmt.Errorf("%w: preset name must not be empty", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.presets.FindByName(ctx, name)
	if err != nil {
		return models.Preset{}, err
	}
	if existing != nil {
		return models.Preset{}, fmt.Errorf("%w: preset name %q already exists", ErrValidation, name)
	}

	p, err := s.presets.Create(ctx, name, description)
	if err != nil {
		return models.Preset{}, err
	}
	s.publish(notifier.KindPresetUpdated, map[string]any{"action": "created", "preset": p})
	return p, nil
}

// Update changes name/description. The active flag is not updatable here.
func (s *PresetService) Update(ctx context.Context, id int64, params PresetParams) (models.Preset, error) {
	if params.Name != nil {
		trimmed := strings.TrimSpace(*params.Name)
		if trimmed == "" {
			return models.Preset{}, fmt.Errorf("%w: preset name must not be empty", ErrValidation)
		}
		params.Name = &trimmed

		s.mu.Lock()
		existing, err := s.presets.FindByName(ctx, trimmed)
		s.mu.Unlock()
		if err != nil {
			return models.Preset{}, err
		}
		if existing != nil && existing.ID != id {
			return models.Preset{}, fmt.Errorf("%w: preset name %q already exists", ErrValidation, trimmed)
		}
	}

	p, err := s.presets.Update(ctx, id, params.Name, params.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Preset{}, fmt.Errorf("%w: preset %d", ErrNotFound, id)
		}
		return models.Preset{}, err
	}
	s.publish(notifier.KindPresetUpdated, map[string]any{"action": "updated", "preset": p})
	return p, nil
}

// Delete removes a preset and its schedules. Deleting the active preset
// implicitly deactivates it first.
func (s *PresetService) Delete(ctx context.Context, id int64) error {
	p, err := s.presets.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: preset %d", ErrNotFound, id)
	}

	if p.Active {
		if err := s.Deactivate(ctx); err != nil {
			return err
		}
	}

	if err := s.presets.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: preset %d", ErrNotFound, id)
		}
		return err
	}
	s.publish(notifier.KindPresetUpdated, map[string]any{"action": "deleted", "id": id})
	return nil
}

func (s *PresetService) Get(ctx context.Context, id int64) (models.Preset, error) {
	p, err := s.presets.Get(ctx, id)
	if err != nil {
		return models.Preset{}, err
	}
	if p == nil {
		return models.Preset{}, fmt.Errorf("%w: preset %d", ErrNotFound, id)
	}
	return *p, nil
}

func (s *PresetService) List(ctx context.Context) ([]models.Preset, error) {
	return s.presets.List(ctx)
}

// Activate atomically makes id the only active preset, announces the new
// schedule list and forces a controller re-evaluation before any further
// schedule decision.
func (s *PresetService) Activate(ctx context.Context, id int64) (models.Preset, error) {
	p, err := s.presets.Activate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Preset{}, fmt.Errorf("%w: preset %d", ErrNotFound, id)
		}
		return models.Preset{}, err
	}

	s.audit(ctx, models.EventPresetActivated, "Preset activated: "+p.Name, map[string]any{
		"id":   p.ID,
		"name": p.Name,
	})
	s.publish(notifier.KindPresetActivated, map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"schedules": p.Schedules,
	})
	s.poke()
	return p, nil
}

// Deactivate clears the active preset; a no-op (not an error) if none is
// active.
func (s *PresetService) Deactivate(ctx context.Context) error {
	if err := s.presets.Deactivate(ctx); err != nil {
		return err
	}
	s.audit(ctx, models.EventPresetDeactivated, "Preset deactivated", nil)
	s.publish(notifier.KindPresetDeactivated, map[string]any{})
	s.poke()
	return nil
}

// AddSchedule validates and attaches a schedule to a preset.
func (s *PresetService) AddSchedule(ctx context.Context, presetID int64, params ScheduleParams) (models.Schedule, error) {
	sched := models.Schedule{
		PresetID:  presetID,
		DayOfWeek: models.AnyDay,
		Enabled:   true,
	}
	applyScheduleParams(&sched, params)
	if err := validateSchedule(sched); err != nil {
		return models.Schedule{}, err
	}

	parent, err := s.presets.Get(ctx, presetID)
	if err != nil {
		return models.Schedule{}, err
	}
	if parent == nil {
		return models.Schedule{}, fmt.Errorf("%w: preset %d", ErrNotFound, presetID)
	}

	created, err := s.presets.AddSchedule(ctx, sched)
	if err != nil {
		return models.Schedule{}, err
	}
	s.publish(notifier.KindScheduleUpdated, map[string]any{"action": "created", "schedule": created})
	if parent.Active {
		s.poke()
	}
	return created, nil
}

// UpdateSchedule applies partial changes and re-validates.
func (s *PresetService) UpdateSchedule(ctx context.Context, id int64, params ScheduleParams) (models.Schedule, error) {
	existing, err := s.presets.GetSchedule(ctx, id)
	if err != nil {
		return models.Schedule{}, err
	}
	if existing == nil {
		return models.Schedule{}, fmt.Errorf("%w: schedule %d", ErrNotFound, id)
	}

	updated := *existing
	applyScheduleParams(&updated, params)
	if err := validateSchedule(updated); err != nil {
		return models.Schedule{}, err
	}

	saved, err := s.presets.UpdateSchedule(ctx, updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Schedule{}, fmt.Errorf("%w: schedule %d", ErrNotFound, id)
		}
		return models.Schedule{}, err
	}
	s.publish(notifier.KindScheduleUpdated, map[string]any{"action": "updated", "schedule": saved})
	s.pokeIfActive(ctx, saved.PresetID)
	return saved, nil
}

// RemoveSchedule deletes one schedule.
func (s *PresetService) RemoveSchedule(ctx context.Context, id int64) error {
	existing, err := s.presets.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: schedule %d", ErrNotFound, id)
	}

	if err := s.presets.DeleteSchedule(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: schedule %d", ErrNotFound, id)
		}
		return err
	}
	s.publish(notifier.KindScheduleUpdated, map[string]any{
		"action":    "deleted",
		"id":        id,
		"preset_id": existing.PresetID,
	})
	s.pokeIfActive(ctx, existing.PresetID)
	return nil
}

func applyScheduleParams(s *models.Schedule, p ScheduleParams) {
	if p.DayOfWeek != nil {
		s.DayOfWeek = *p.DayOfWeek
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.DurationSeconds != nil {
		s.DurationSeconds = *p.DurationSeconds
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
}

func validateSchedule(s models.Schedule) error {
	if s.DayOfWeek < models.AnyDay || s.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be -1 (any) or 0-6", ErrValidation)
	}
	if _, _, err := parseClock(s.StartTime); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration_seconds must be > 0", ErrValidation)
	}
	return nil
}

func (s *PresetService) pokeIfActive(ctx context.Context, presetID int64) {
	active, err := s.presets.GetActive(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("active_preset_check_failed", "err", err)
		}
		s.poke() // when in doubt, re-evaluate
		return
	}
	if active != nil && active.ID == presetID {
		s.poke()
	}
}

func (s *PresetService) poke() {
	if s.poker != nil {
		s.poker.Poke()
	}
}

func (s *PresetService) publish(kind string, data any) {
	if s.notif != nil {
		s.notif.Publish(notifier.Event{Kind: kind, Data: data})
	}
}

func (s *PresetService) audit(ctx context.Context, typ, desc string, meta map[string]any) {
	if err := s.events.Append(ctx, models.IrrigationEvent{
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	}); err != nil && s.log != nil {
		s.log.Warnw("audit_append_failed", "err", err, "type", typ)
	}
}
