package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/service"
)

func presetTestService(presets *mockPresets) *service.Service {
	return &service.Service{
		Auth:    &mockAuth{parseID: 1},
		Presets: presets,
	}
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPresetHandlers_Create(t *testing.T) {
	mock := &mockPresets{preset: models.Preset{ID: 1, Name: "morning"}}
	r := newTestRouter(presetTestService(mock))

	w := doJSON(r, http.MethodPost, "/api/v1/presets", `{"name":"morning","description":"lawn"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if mock.lastCreateName != "morning" {
		t.Fatalf("create name: got %q", mock.lastCreateName)
	}

	// binding: name is required
	w = doJSON(r, http.MethodPost, "/api/v1/presets", `{"description":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400, got %d", w.Code)
	}

	// service-level validation maps to 400
	mock.err = fmt.Errorf("%w: duplicated", service.ErrValidation)
	w = doJSON(r, http.MethodPost, "/api/v1/presets", `{"name":"morning"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate name: expected 400, got %d", w.Code)
	}
}

func TestPresetHandlers_GetNotFoundAndBadID(t *testing.T) {
	mock := &mockPresets{err: fmt.Errorf("%w: preset 9", service.ErrNotFound)}
	r := newTestRouter(presetTestService(mock))

	w := doAuthed(r, http.MethodGet, "/api/v1/presets/9")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body=%s)", w.Code, w.Body.String())
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/presets/abc")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("junk id: expected 400, got %d", w.Code)
	}
}

func TestPresetHandlers_ActivateDeactivate(t *testing.T) {
	mock := &mockPresets{preset: models.Preset{ID: 3, Name: "p", Active: true}}
	r := newTestRouter(presetTestService(mock))

	w := doAuthed(r, http.MethodPost, "/api/v1/presets/3/activate")
	if w.Code != http.StatusOK {
		t.Fatalf("activate: status=%d body=%s", w.Code, w.Body.String())
	}
	if mock.lastID != 3 {
		t.Fatalf("activate id: got %d", mock.lastID)
	}

	w = doAuthed(r, http.MethodPost, "/api/v1/presets/deactivate")
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: status=%d body=%s", w.Code, w.Body.String())
	}
	if mock.deactivateCalled != 1 {
		t.Fatalf("deactivate calls: got %d", mock.deactivateCalled)
	}
}

func TestScheduleHandlers_DayOfWeekFormats(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantDay *int
		code    int
	}{
		{"integer day", `{"preset_id":1,"day_of_week":3,"start_time":"06:00","duration_seconds":600}`, intp(3), http.StatusOK},
		{"any as string", `{"preset_id":1,"day_of_week":"any","start_time":"06:00","duration_seconds":600}`, intp(models.AnyDay), http.StatusOK},
		{"numeric string", `{"preset_id":1,"day_of_week":"5","start_time":"06:00","duration_seconds":600}`, intp(5), http.StatusOK},
		{"omitted", `{"preset_id":1,"start_time":"06:00","duration_seconds":600}`, nil, http.StatusOK},
		{"garbage string", `{"preset_id":1,"day_of_week":"someday","start_time":"06:00","duration_seconds":600}`, nil, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockPresets{sched: models.Schedule{ID: 1}}
			r := newTestRouter(presetTestService(mock))

			w := doJSON(r, http.MethodPost, "/api/v1/schedules", tc.body)
			if w.Code != tc.code {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.code, w.Body.String())
			}
			if tc.code != http.StatusOK {
				return
			}
			got := mock.lastSchedParams.DayOfWeek
			if tc.wantDay == nil {
				if got != nil {
					t.Fatalf("day_of_week: expected unset, got %d", *got)
				}
				return
			}
			if got == nil || *got != *tc.wantDay {
				t.Fatalf("day_of_week: got %v, want %d", got, *tc.wantDay)
			}
		})
	}
}

func TestScheduleHandlers_CreateRequiresPresetID(t *testing.T) {
	r := newTestRouter(presetTestService(&mockPresets{}))
	w := doJSON(r, http.MethodPost, "/api/v1/schedules", `{"start_time":"06:00","duration_seconds":600}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body=%s)", w.Code, w.Body.String())
	}
}

func TestScheduleHandlers_UpdateDelete(t *testing.T) {
	mock := &mockPresets{sched: models.Schedule{ID: 7, Enabled: false}}
	r := newTestRouter(presetTestService(mock))

	w := doJSON(r, http.MethodPut, "/api/v1/schedules/7", `{"enabled":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status=%d body=%s", w.Code, w.Body.String())
	}
	if mock.lastID != 7 {
		t.Fatalf("update id: got %d", mock.lastID)
	}
	if mock.lastSchedParams.Enabled == nil || *mock.lastSchedParams.Enabled {
		t.Fatalf("enabled param: got %v", mock.lastSchedParams.Enabled)
	}

	w = doAuthed(r, http.MethodDelete, "/api/v1/schedules/7")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status=%d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]bool
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp["success"] {
		t.Fatalf("expected success response, got %s", w.Body.String())
	}
}

func intp(v int) *int { return &v }
