package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart_irrigation/internal/models"
)

type PresetSQLite struct {
	db *sql.DB
}

func NewPresetSQLite(db *sql.DB) *PresetSQLite { return &PresetSQLite{db: db} }

var _ PresetRepo = (*PresetSQLite)(nil)

const (
	insertPresetSQL = `INSERT INTO presets (name, description, active, created_at) VALUES (?, ?, 0, ?)`
	selectPresetSQL = `SELECT id, name, description, active, created_at FROM presets WHERE id = ?`
	listPresetsSQL  = `SELECT id, name, description, active, created_at FROM presets ORDER BY id ASC`
	findByNameSQL   = `SELECT id, name, description, active, created_at FROM presets WHERE LOWER(name) = LOWER(?)`
	activePresetSQL = `SELECT id, name, description, active, created_at FROM presets WHERE active = 1`

	insertScheduleSQL = `
		INSERT INTO schedules (preset_id, day_of_week, start_time, duration_s, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	updateScheduleSQL = `
		UPDATE schedules SET day_of_week=?, start_time=?, duration_s=?, enabled=? WHERE id=?`
	selectScheduleSQL = `
		SELECT id, preset_id, day_of_week, start_time, duration_s, enabled, created_at
		FROM schedules WHERE id = ?`
	schedulesForPresetSQL = `
		SELECT id, preset_id, day_of_week, start_time, duration_s, enabled, created_at
		FROM schedules WHERE preset_id = ? ORDER BY start_time ASC, id ASC`
)

// Create inserts an inactive preset. Name uniqueness is checked by the
// service layer; the store only persists.
func (r *PresetSQLite) Create(ctx context.Context, name, description string) (models.Preset, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, insertPresetSQL, name, description, now)
	if err != nil {
		return models.Preset{}, fmt.Errorf("insert preset %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Preset{}, fmt.Errorf("last insert id for preset %q: %w", name, err)
	}
	return models.Preset{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		Schedules:   []models.Schedule{},
	}, nil
}

// Update changes name and/or description. Nil fields are left untouched.
// The active flag is deliberately not updatable here.
func (r *PresetSQLite) Update(ctx context.Context, id int64, name, description *string) (models.Preset, error) {
	if name != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE presets SET name=? WHERE id=?`, *name, id); err != nil {
			return models.Preset{}, fmt.Errorf("update preset %d name: %w", id, err)
		}
	}
	if description != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE presets SET description=? WHERE id=?`, *description, id); err != nil {
			return models.Preset{}, fmt.Errorf("update preset %d description: %w", id, err)
		}
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return models.Preset{}, err
	}
	if p == nil {
		return models.Preset{}, sql.ErrNoRows
	}
	return *p, nil
}

// Delete removes the preset; schedules go with it via ON DELETE CASCADE.
func (r *PresetSQLite) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM presets WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete preset %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for delete preset %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Get fetches one preset with its schedules. Returns (nil, nil) if absent.
func (r *PresetSQLite) Get(ctx context.Context, id int64) (*models.Preset, error) {
	row := r.db.QueryRowContext(ctx, selectPresetSQL, id)
	p, err := scanPreset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.attachSchedules(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PresetSQLite) List(ctx context.Context) ([]models.Preset, error) {
	rows, err := r.db.QueryContext(ctx, listPresetsSQL)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	out := make([]models.Preset, 0, 8)
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.attachSchedules(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FindByName matches case-insensitively. Returns (nil, nil) if absent.
func (r *PresetSQLite) FindByName(ctx context.Context, name string) (*models.Preset, error) {
	row := r.db.QueryRowContext(ctx, findByNameSQL, name)
	p, err := scanPreset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Activate atomically clears the active flag everywhere and sets it on id.
// Returns sql.ErrNoRows when id is unknown; the transaction is rolled back so
// the previously active preset keeps its flag.
func (r *PresetSQLite) Activate(ctx context.Context, id int64) (models.Preset, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Preset{}, fmt.Errorf("begin activate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE presets SET active=0 WHERE active=1`); err != nil {
		return models.Preset{}, fmt.Errorf("clear active presets: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE presets SET active=1 WHERE id=?`, id)
	if err != nil {
		return models.Preset{}, fmt.Errorf("activate preset %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Preset{}, fmt.Errorf("rows affected for activate preset %d: %w", id, err)
	}
	if n == 0 {
		return models.Preset{}, sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return models.Preset{}, fmt.Errorf("commit activate tx: %w", err)
	}

	p, err := r.Get(ctx, id)
	if err != nil {
		return models.Preset{}, err
	}
	if p == nil {
		return models.Preset{}, sql.ErrNoRows
	}
	return *p, nil
}

// Deactivate clears the active flag; no-op when nothing is active.
func (r *PresetSQLite) Deactivate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE presets SET active=0 WHERE active=1`); err != nil {
		return fmt.Errorf("deactivate presets: %w", err)
	}
	return nil
}

// GetActive returns the single active preset with schedules, or (nil, nil).
func (r *PresetSQLite) GetActive(ctx context.Context) (*models.Preset, error) {
	row := r.db.QueryRowContext(ctx, activePresetSQL)
	p, err := scanPreset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.attachSchedules(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PresetSQLite) AddSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, insertScheduleSQL,
		s.PresetID, s.DayOfWeek, s.StartTime, s.DurationSeconds, s.Enabled, now)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("insert schedule for preset %d: %w", s.PresetID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Schedule{}, fmt.Errorf("last insert id for schedule: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	return s, nil
}

func (r *PresetSQLite) UpdateSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error) {
	res, err := r.db.ExecContext(ctx, updateScheduleSQL,
		s.DayOfWeek, s.StartTime, s.DurationSeconds, s.Enabled, s.ID)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("update schedule %d: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Schedule{}, fmt.Errorf("rows affected for update schedule %d: %w", s.ID, err)
	}
	if n == 0 {
		return models.Schedule{}, sql.ErrNoRows
	}
	got, err := r.GetSchedule(ctx, s.ID)
	if err != nil {
		return models.Schedule{}, err
	}
	return *got, nil
}

// GetSchedule returns (nil, nil) if absent.
func (r *PresetSQLite) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	row := r.db.QueryRowContext(ctx, selectScheduleSQL, id)
	var s models.Schedule
	if err := row.Scan(&s.ID, &s.PresetID, &s.DayOfWeek, &s.StartTime, &s.DurationSeconds, &s.Enabled, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select schedule %d: %w", id, err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func (r *PresetSQLite) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for delete schedule %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PresetSQLite) attachSchedules(ctx context.Context, p *models.Preset) error {
	rows, err := r.db.QueryContext(ctx, schedulesForPresetSQL, p.ID)
	if err != nil {
		return fmt.Errorf("list schedules for preset %d: %w", p.ID, err)
	}
	defer rows.Close()

	p.Schedules = make([]models.Schedule, 0, 4)
	for rows.Next() {
		var s models.Schedule
		if err := rows.Scan(&s.ID, &s.PresetID, &s.DayOfWeek, &s.StartTime, &s.DurationSeconds, &s.Enabled, &s.CreatedAt); err != nil {
			return err
		}
		s.CreatedAt = s.CreatedAt.UTC()
		p.Schedules = append(p.Schedules, s)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row rowScanner) (models.Preset, error) {
	var p models.Preset
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Active, &p.CreatedAt); err != nil {
		return models.Preset{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
