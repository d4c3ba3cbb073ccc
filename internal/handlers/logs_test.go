package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/service"
)

func logTestService(events *mockEventLog, runs *mockRunHistory) *service.Service {
	return &service.Service{
		Auth:   &mockAuth{parseID: 1},
		Events: events,
		Runs:   runs,
	}
}

func TestGetLogs_FilterParsing(t *testing.T) {
	mock := &mockEventLog{resp: []models.IrrigationEvent{
		{EventID: "e1", Type: models.EventPumpStart},
	}}
	r := newTestRouter(logTestService(mock, &mockRunHistory{}))

	w := doAuthed(r, http.MethodGet, "/api/v1/logs/?from=2026-08-01&to=2026-08-26&type=pump_start")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Count  int                      `json:"count"`
		Events []models.IrrigationEvent `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count: got %d", resp.Count)
	}
	if mock.lastType != "PUMP_START" {
		t.Fatalf("type must be normalized upper-case, got %q", mock.lastType)
	}
	wantFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !mock.lastFrom.Equal(wantFrom) {
		t.Fatalf("from: got %v, want %v", mock.lastFrom, wantFrom)
	}
	// date-only "to" becomes end of day inclusive
	if !mock.lastTo.After(time.Date(2026, 8, 26, 23, 59, 58, 0, time.UTC)) {
		t.Fatalf("to must cover the whole day, got %v", mock.lastTo)
	}
}

func TestGetLogs_BadRanges(t *testing.T) {
	r := newTestRouter(logTestService(&mockEventLog{}, &mockRunHistory{}))

	cases := []struct {
		name string
		url  string
	}{
		{"bad from", "/api/v1/logs/?from=yesterday"},
		{"bad to", "/api/v1/logs/?to=tomorrow"},
		{"inverted range", "/api/v1/logs/?from=2026-08-20&to=2026-08-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doAuthed(r, http.MethodGet, tc.url)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (body=%s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestGetRuns(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	mock := &mockRunHistory{resp: []models.IrrigationRun{
		{ID: 2, StartedAt: now, Source: models.SourceManual},
		{ID: 1, StartedAt: now.Add(-time.Hour), Source: models.SourceScheduled},
	}}
	r := newTestRouter(logTestService(&mockEventLog{}, mock))

	w := doAuthed(r, http.MethodGet, "/api/v1/runs?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if mock.lastLimit != 2 {
		t.Fatalf("limit: got %d", mock.lastLimit)
	}

	var resp struct {
		Count int                    `json:"count"`
		Runs  []models.IrrigationRun `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Runs) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetRuns_InvalidLimit(t *testing.T) {
	r := newTestRouter(logTestService(&mockEventLog{}, &mockRunHistory{}))
	w := doAuthed(r, http.MethodGet, "/api/v1/runs?limit=-3")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
