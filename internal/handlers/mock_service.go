package handlers

import (
	"context"
	"net/http"
	"time"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockPump struct {
	startErr    error
	stopErr     error
	status      service.PumpStatus
	cfg         service.ControllerConfig
	startCalled int
	stopCalled  int
}

func (m *mockPump) StartManual(ctx context.Context) error {
	m.startCalled++
	return m.startErr
}
func (m *mockPump) StopManual(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockPump) Status() service.PumpStatus       { return m.status }
func (m *mockPump) Config() service.ControllerConfig { return m.cfg }

type mockPresets struct {
	preset  models.Preset
	presets []models.Preset
	sched   models.Schedule
	err     error

	lastCreateName   string
	lastID           int64
	lastPresetParams service.PresetParams
	lastSchedParams  service.ScheduleParams
	deactivateCalled int
}

func (m *mockPresets) Create(ctx context.Context, name, description string) (models.Preset, error) {
	m.lastCreateName = name
	return m.preset, m.err
}
func (m *mockPresets) Update(ctx context.Context, id int64, p service.PresetParams) (models.Preset, error) {
	m.lastID, m.lastPresetParams = id, p
	return m.preset, m.err
}
func (m *mockPresets) Delete(ctx context.Context, id int64) error {
	m.lastID = id
	return m.err
}
func (m *mockPresets) Get(ctx context.Context, id int64) (models.Preset, error) {
	m.lastID = id
	return m.preset, m.err
}
func (m *mockPresets) List(ctx context.Context) ([]models.Preset, error) {
	return m.presets, m.err
}
func (m *mockPresets) Activate(ctx context.Context, id int64) (models.Preset, error) {
	m.lastID = id
	return m.preset, m.err
}
func (m *mockPresets) Deactivate(ctx context.Context) error {
	m.deactivateCalled++
	return m.err
}
func (m *mockPresets) AddSchedule(ctx context.Context, presetID int64, p service.ScheduleParams) (models.Schedule, error) {
	m.lastID, m.lastSchedParams = presetID, p
	return m.sched, m.err
}
func (m *mockPresets) UpdateSchedule(ctx context.Context, id int64, p service.ScheduleParams) (models.Schedule, error) {
	m.lastID, m.lastSchedParams = id, p
	return m.sched, m.err
}
func (m *mockPresets) RemoveSchedule(ctx context.Context, id int64) error {
	m.lastID = id
	return m.err
}

type mockMonitoring struct {
	reading models.SensorReading
	err     error
}

func (m *mockMonitoring) Latest(ctx context.Context) (models.SensorReading, error) {
	return m.reading, m.err
}

type mockEventLog struct {
	resp     []models.IrrigationEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.IrrigationEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockRunHistory struct {
	resp      []models.IrrigationRun
	err       error
	lastLimit int
}

func (m *mockRunHistory) Recent(ctx context.Context, limit int) ([]models.IrrigationRun, error) {
	m.lastLimit = limit
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, notifier.New(), nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
