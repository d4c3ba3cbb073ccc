package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/notifier"
)

// memPresetRepo is an in-memory PresetRepo good enough for service tests.
type memPresetRepo struct {
	mu        sync.Mutex
	nextID    int64
	presets   map[int64]*models.Preset
	schedules map[int64]*models.Schedule
}

func newMemPresetRepo() *memPresetRepo {
	return &memPresetRepo{
		presets:   make(map[int64]*models.Preset),
		schedules: make(map[int64]*models.Schedule),
	}
}

func (m *memPresetRepo) Create(ctx context.Context, name, description string) (models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := &models.Preset{ID: m.nextID, Name: name, Description: description}
	m.presets[p.ID] = p
	return m.snapshot(p), nil
}

func (m *memPresetRepo) Update(ctx context.Context, id int64, name, description *string) (models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets[id]
	if !ok {
		return models.Preset{}, sql.ErrNoRows
	}
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	return m.snapshot(p), nil
}

func (m *memPresetRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.presets, id)
	for sid, s := range m.schedules {
		if s.PresetID == id {
			delete(m.schedules, sid)
		}
	}
	return nil
}

func (m *memPresetRepo) Get(ctx context.Context, id int64) (*models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets[id]
	if !ok {
		return nil, nil
	}
	snap := m.snapshot(p)
	return &snap, nil
}

func (m *memPresetRepo) List(ctx context.Context) ([]models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Preset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, m.snapshot(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPresetRepo) FindByName(ctx context.Context, name string) (*models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.presets {
		if p.Name == name {
			snap := m.snapshot(p)
			return &snap, nil
		}
	}
	return nil, nil
}

func (m *memPresetRepo) Activate(ctx context.Context, id int64) (models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.presets[id]
	if !ok {
		return models.Preset{}, sql.ErrNoRows
	}
	for _, p := range m.presets {
		p.Active = false
	}
	target.Active = true
	return m.snapshot(target), nil
}

func (m *memPresetRepo) Deactivate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.presets {
		p.Active = false
	}
	return nil
}

func (m *memPresetRepo) GetActive(ctx context.Context) (*models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.presets {
		if p.Active {
			snap := m.snapshot(p)
			return &snap, nil
		}
	}
	return nil, nil
}

func (m *memPresetRepo) AddSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.schedules[s.ID] = &s
	return s, nil
}

func (m *memPresetRepo) UpdateSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; !ok {
		return models.Schedule{}, sql.ErrNoRows
	}
	m.schedules[s.ID] = &s
	return s, nil
}

func (m *memPresetRepo) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memPresetRepo) DeleteSchedule(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.schedules, id)
	return nil
}

// snapshot copies a preset with its schedules attached; callers hold the lock.
func (m *memPresetRepo) snapshot(p *models.Preset) models.Preset {
	cp := *p
	cp.Schedules = nil
	for _, s := range m.schedules {
		if s.PresetID == p.ID {
			cp.Schedules = append(cp.Schedules, *s)
		}
	}
	sort.Slice(cp.Schedules, func(i, j int) bool { return cp.Schedules[i].ID < cp.Schedules[j].ID })
	return cp
}

type countingPoker struct {
	mu    sync.Mutex
	pokes int
}

func (p *countingPoker) Poke() {
	p.mu.Lock()
	p.pokes++
	p.mu.Unlock()
}

func (p *countingPoker) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pokes
}

func newPresetService(t *testing.T) (*PresetService, *memPresetRepo, *countingPoker) {
	t.Helper()
	repo := newMemPresetRepo()
	poker := &countingPoker{}
	notif := notifier.New()
	t.Cleanup(notif.Close)
	return NewPresetService(repo, &fakeEventRepo{}, notif, poker, nil), repo, poker
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestPresetService_CreateValidation(t *testing.T) {
	svc, _, _ := newPresetService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "   ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name: expected ErrValidation, got %v", err)
	}

	p, err := svc.Create(ctx, "  morning  ", "north lawn")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Name != "morning" {
		t.Fatalf("name must be trimmed, got %q", p.Name)
	}
	if p.Active {
		t.Fatal("a fresh preset must be inactive")
	}

	if _, err := svc.Create(ctx, "morning", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate name: expected ErrValidation, got %v", err)
	}
}

func TestPresetService_UpdateNameCollision(t *testing.T) {
	svc, _, _ := newPresetService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "a", "")
	b, _ := svc.Create(ctx, "b", "")

	if _, err := svc.Update(ctx, b.ID, PresetParams{Name: strPtr("a")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("renaming onto an existing name: expected ErrValidation, got %v", err)
	}
	// renaming to your own name is fine
	if _, err := svc.Update(ctx, a.ID, PresetParams{Name: strPtr("a")}); err != nil {
		t.Fatalf("self-rename: %v", err)
	}
	if _, err := svc.Update(ctx, 999, PresetParams{Name: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestPresetService_ActivateSingleActive(t *testing.T) {
	svc, repo, poker := newPresetService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "a", "")
	b, _ := svc.Create(ctx, "b", "")

	if _, err := svc.Activate(ctx, a.ID); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if _, err := svc.Activate(ctx, b.ID); err != nil {
		t.Fatalf("activate b: %v", err)
	}

	active, _ := repo.GetActive(ctx)
	if active == nil || active.ID != b.ID {
		t.Fatalf("expected only b active, got %+v", active)
	}
	got, _ := svc.Get(ctx, a.ID)
	if got.Active {
		t.Fatal("activating b must deactivate a")
	}
	if poker.count() != 2 {
		t.Fatalf("every activation must poke the controller, got %d", poker.count())
	}

	if _, err := svc.Activate(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestPresetService_DeactivateIsIdempotent(t *testing.T) {
	svc, _, poker := newPresetService(t)
	ctx := context.Background()

	if err := svc.Deactivate(ctx); err != nil {
		t.Fatalf("deactivate with none active must be a no-op: %v", err)
	}
	if poker.count() != 1 {
		t.Fatalf("deactivate must still poke, got %d", poker.count())
	}
}

func TestPresetService_DeleteActivePresetDeactivatesFirst(t *testing.T) {
	svc, repo, _ := newPresetService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, "p", "")
	if _, err := svc.Activate(ctx, p.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := svc.AddSchedule(ctx, p.ID, ScheduleParams{
		StartTime:       strPtr("06:00"),
		DurationSeconds: intPtr(600),
	}); err != nil {
		t.Fatalf("add schedule: %v", err)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if active, _ := repo.GetActive(ctx); active != nil {
		t.Fatalf("deleting the active preset must leave none active, got %+v", active)
	}
	if len(repo.schedules) != 0 {
		t.Fatalf("delete must cascade to schedules, %d left", len(repo.schedules))
	}

	if err := svc.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestPresetService_ScheduleValidation(t *testing.T) {
	svc, _, _ := newPresetService(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, "p", "")

	cases := []struct {
		name   string
		params ScheduleParams
	}{
		{"missing start_time", ScheduleParams{DurationSeconds: intPtr(60)}},
		{"bad start_time", ScheduleParams{StartTime: strPtr("7am"), DurationSeconds: intPtr(60)}},
		{"zero duration", ScheduleParams{StartTime: strPtr("07:00"), DurationSeconds: intPtr(0)}},
		{"negative duration", ScheduleParams{StartTime: strPtr("07:00"), DurationSeconds: intPtr(-5)}},
		{"day too big", ScheduleParams{DayOfWeek: intPtr(7), StartTime: strPtr("07:00"), DurationSeconds: intPtr(60)}},
		{"day too small", ScheduleParams{DayOfWeek: intPtr(-2), StartTime: strPtr("07:00"), DurationSeconds: intPtr(60)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddSchedule(ctx, p.ID, tc.params); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	if _, err := svc.AddSchedule(ctx, 999, ScheduleParams{
		StartTime:       strPtr("07:00"),
		DurationSeconds: intPtr(60),
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("orphan schedule: expected ErrNotFound, got %v", err)
	}
}

func TestPresetService_ScheduleDefaults(t *testing.T) {
	svc, _, _ := newPresetService(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, "p", "")

	s, err := svc.AddSchedule(ctx, p.ID, ScheduleParams{
		StartTime:       strPtr("07:00"),
		DurationSeconds: intPtr(60),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.DayOfWeek != models.AnyDay {
		t.Fatalf("day_of_week must default to any, got %d", s.DayOfWeek)
	}
	if !s.Enabled {
		t.Fatal("schedules must default to enabled")
	}
}

func TestPresetService_ScheduleMutationPokesOnlyActivePreset(t *testing.T) {
	svc, _, poker := newPresetService(t)
	ctx := context.Background()

	idle, _ := svc.Create(ctx, "idle", "")
	act, _ := svc.Create(ctx, "active", "")
	if _, err := svc.Activate(ctx, act.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	base := poker.count()

	if _, err := svc.AddSchedule(ctx, idle.ID, ScheduleParams{
		StartTime:       strPtr("07:00"),
		DurationSeconds: intPtr(60),
	}); err != nil {
		t.Fatalf("add to idle: %v", err)
	}
	if poker.count() != base {
		t.Fatal("mutating an inactive preset must not poke the controller")
	}

	s, err := svc.AddSchedule(ctx, act.ID, ScheduleParams{
		StartTime:       strPtr("08:00"),
		DurationSeconds: intPtr(60),
	})
	if err != nil {
		t.Fatalf("add to active: %v", err)
	}
	if poker.count() != base+1 {
		t.Fatal("mutating the active preset must poke the controller")
	}

	if _, err := svc.UpdateSchedule(ctx, s.ID, ScheduleParams{Enabled: boolPtr(false)}); err != nil {
		t.Fatalf("update schedule: %v", err)
	}
	if poker.count() != base+2 {
		t.Fatal("schedule updates on the active preset must poke")
	}

	if err := svc.RemoveSchedule(ctx, s.ID); err != nil {
		t.Fatalf("remove schedule: %v", err)
	}
	if poker.count() != base+3 {
		t.Fatal("schedule removal on the active preset must poke")
	}
}

func TestPresetService_UpdateScheduleNotFound(t *testing.T) {
	svc, _, _ := newPresetService(t)
	ctx := context.Background()

	if _, err := svc.UpdateSchedule(ctx, 42, ScheduleParams{Enabled: boolPtr(false)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RemoveSchedule(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
