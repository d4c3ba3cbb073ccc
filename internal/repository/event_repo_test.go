package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"smart_irrigation/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newEventMock(t *testing.T) (*EventSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewEventSQLite(db)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return repo, mock, cleanup
}

func TestEventSQLite_AppendFillsDefaults(t *testing.T) {
	repo, mock, cleanup := newEventMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO irrigation_events (id, occurred_at, type, message, meta)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "PUMP_START", "Pump started (manual)", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), models.IrrigationEvent{
		Type:        "pump_start", // normalized to upper case on write
		Description: "Pump started (manual)",
		Metadata:    map[string]any{"source": "manual"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestEventSQLite_AppendFormatsTimestamp(t *testing.T) {
	repo, mock, cleanup := newEventMock(t)
	defer cleanup()

	occurred := time.Date(2026, 8, 26, 10, 30, 15, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO irrigation_events`)).
		WithArgs("evt-1", "2026-08-26 10:30:15", "SAFETY_STOP", "", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), models.IrrigationEvent{
		EventID:    "evt-1",
		OccurredAt: occurred,
		Type:       models.EventSafetyStop,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestEventSQLite_ListFilters(t *testing.T) {
	repo, mock, cleanup := newEventMock(t)
	defer cleanup()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("e1", time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC), "PUMP_START", "Pump started (manual)", `{"source":"manual"}`).
		AddRow("e2", time.Date(2026, 8, 26, 10, 5, 0, 0, time.UTC), "PUMP_STOP", "Pump stopped (manual_stop)", nil)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM irrigation_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`,
	)).
		WithArgs(from, to, "PUMP_START").
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), from, to, " pump_start ")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	meta, ok := events[0].Metadata.(map[string]any)
	if !ok || meta["source"] != "manual" {
		t.Fatalf("metadata must round-trip as JSON, got %#v", events[0].Metadata)
	}
	if events[1].Metadata != nil {
		t.Fatalf("nil meta must stay nil, got %#v", events[1].Metadata)
	}
}

func TestEventSQLite_ListNoFilters(t *testing.T) {
	repo, mock, cleanup := newEventMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM irrigation_events ORDER BY occurred_at ASC`,
	)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}))

	events, err := repo.List(context.Background(), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty result, got %d", len(events))
	}
}
