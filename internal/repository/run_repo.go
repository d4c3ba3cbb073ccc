package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smart_irrigation/internal/models"
)

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite { return &RunSQLite{db: db} }

var _ RunRepo = (*RunSQLite)(nil)

// StartRun opens a history row for a pump run and returns its id.
func (r *RunSQLite) StartRun(ctx context.Context, run models.IrrigationRun) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO irrigation_runs (started_at, source, duration_s, water_level)
		VALUES (?, ?, 0, ?)
	`, run.StartedAt.UTC(), run.Source, run.WaterLevel)
	if err != nil {
		return 0, fmt.Errorf("insert irrigation run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for irrigation run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run with its measured duration. Closing an unknown or
// already-closed run is not an error; the history stays append-mostly.
func (r *RunSQLite) FinishRun(ctx context.Context, id int64, stoppedAt time.Time, durationSeconds float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE irrigation_runs SET stopped_at=?, duration_s=? WHERE id=? AND stopped_at IS NULL
	`, stoppedAt.UTC(), durationSeconds, id)
	if err != nil {
		return fmt.Errorf("finish irrigation run %d: %w", id, err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (r *RunSQLite) List(ctx context.Context, limit int) ([]models.IrrigationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, stopped_at, source, duration_s, water_level
		FROM irrigation_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list irrigation runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.IrrigationRun, 0, limit)
	for rows.Next() {
		var run models.IrrigationRun
		var stopped sql.NullTime
		if err := rows.Scan(&run.ID, &run.StartedAt, &stopped, &run.Source, &run.DurationSeconds, &run.WaterLevel); err != nil {
			return nil, err
		}
		run.StartedAt = run.StartedAt.UTC()
		if stopped.Valid {
			t := stopped.Time.UTC()
			run.StoppedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
