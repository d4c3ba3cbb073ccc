package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"smart_irrigation/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRunMock(t *testing.T) (*RunSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewRunSQLite(db)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return repo, mock, cleanup
}

func TestRunSQLite_StartAndFinish(t *testing.T) {
	repo, mock, cleanup := newRunMock(t)
	defer cleanup()

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO irrigation_runs (started_at, source, duration_s, water_level)`)).
		WithArgs(started, models.SourceManual, 75.5).
		WillReturnResult(sqlmock.NewResult(9, 1))

	id, err := repo.StartRun(context.Background(), models.IrrigationRun{
		StartedAt:  started,
		Source:     models.SourceManual,
		WaterLevel: 75.5,
	})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if id != 9 {
		t.Fatalf("id: got %d, want 9", id)
	}

	stopped := started.Add(10 * time.Minute)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE irrigation_runs SET stopped_at=?, duration_s=? WHERE id=? AND stopped_at IS NULL`)).
		WithArgs(stopped, 600.0, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.FinishRun(context.Background(), 9, stopped, 600); err != nil {
		t.Fatalf("finish run: %v", err)
	}
}

func TestRunSQLite_FinishAlreadyClosedIsNoError(t *testing.T) {
	repo, mock, cleanup := newRunMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE irrigation_runs SET stopped_at=?, duration_s=? WHERE id=? AND stopped_at IS NULL`)).
		WithArgs(sqlmock.AnyArg(), 0.0, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.FinishRun(context.Background(), 3, time.Now(), 0); err != nil {
		t.Fatalf("closing a closed run must not error: %v", err)
	}
}

func TestRunSQLite_List(t *testing.T) {
	repo, mock, cleanup := newRunMock(t)
	defer cleanup()

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	stopped := started.Add(5 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "started_at", "stopped_at", "source", "duration_s", "water_level"}).
		AddRow(2, started.Add(time.Hour), nil, models.SourceScheduled, 0.0, 70.0).
		AddRow(1, started, stopped, models.SourceManual, 300.0, 75.0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, started_at, stopped_at, source, duration_s, water_level`)).
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].StoppedAt != nil {
		t.Fatalf("open run must have nil StoppedAt, got %v", runs[0].StoppedAt)
	}
	if runs[1].StoppedAt == nil || !runs[1].StoppedAt.Equal(stopped) {
		t.Fatalf("closed run StoppedAt: got %v, want %v", runs[1].StoppedAt, stopped)
	}
}

func TestRunSQLite_ListDefaultLimit(t *testing.T) {
	repo, mock, cleanup := newRunMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM irrigation_runs ORDER BY started_at DESC LIMIT ?`)).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "stopped_at", "source", "duration_s", "water_level"}))

	runs, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}
