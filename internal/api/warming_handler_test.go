package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/middleware"
	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/services/warming"
)

type MockWarming struct {
	startErr    error
	active      map[uuid.UUID]time.Time
	entries     []models.ActivityLogEntry
	lastLimit   int
	diagnostics *models.WarmingDiagnostics
	calls       map[string]int
	errors      map[string]error
	mutex       sync.Mutex
}

func NewMockWarming() *MockWarming {
	return &MockWarming{
		active: make(map[uuid.UUID]time.Time),
		calls:  make(map[string]int),
		errors: make(map[string]error),
	}
}

func (m *MockWarming) SetError(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.errors[method] = err
}

func (m *MockWarming) GetCallCount(method string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.calls[method]
}

func (m *MockWarming) Start(ctx context.Context, tenantID uuid.UUID) (*models.WarmingActionResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["Start"]++
	if err := m.errors["Start"]; err != nil {
		if warming.IsPrecondition(err) {
			return &models.WarmingActionResult{Success: false, Error: err.Error()}, err
		}
		return nil, err
	}
	m.active[tenantID] = time.Now()
	return &models.WarmingActionResult{Success: true, Message: "Warming started"}, nil
}

func (m *MockWarming) Stop(ctx context.Context, tenantID uuid.UUID) *models.WarmingActionResult {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["Stop"]++
	delete(m.active, tenantID)
	return &models.WarmingActionResult{Success: true, Message: "Warming stopped"}
}

func (m *MockWarming) Status(tenantID uuid.UUID) models.WarmingStatus {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	startedAt, ok := m.active[tenantID]
	if !ok {
		return models.WarmingStatus{}
	}
	return models.WarmingStatus{IsActive: true, StartedAt: &startedAt}
}

func (m *MockWarming) ActivityLog(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["ActivityLog"]++
	m.lastLimit = limit
	if err := m.errors["ActivityLog"]; err != nil {
		return nil, err
	}
	return m.entries, nil
}

func (m *MockWarming) Collect(ctx context.Context, tenantID uuid.UUID) (*models.WarmingDiagnostics, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["Collect"]++
	if err := m.errors["Collect"]; err != nil {
		return nil, err
	}
	return m.diagnostics, nil
}

type WarmingHandlerTestSuite struct {
	suite.Suite
	tenantID uuid.UUID
	warming  *MockWarming
	router   *gin.Engine
}

func (s *WarmingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.tenantID = uuid.New()
	s.warming = NewMockWarming()
	handler := NewWarmingHandler(s.warming, s.warming, zap.NewNop())

	s.router = gin.New()
	group := s.router.Group("/api/v1/warming", identity(s.tenantID, middleware.RoleUser))
	{
		group.POST("/start", handler.Start)
		group.POST("/stop", handler.Stop)
		group.GET("/status", handler.Status)
		group.GET("/logs", handler.Logs)
		group.GET("/diagnostics", handler.Diagnostics)
	}
}

func (s *WarmingHandlerTestSuite) TestStartThenStatusThenStop() {
	w := performRequest(s.router, http.MethodPost, "/api/v1/warming/start", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"success":true`)

	w = performRequest(s.router, http.MethodGet, "/api/v1/warming/status", nil)
	var status models.WarmingStatus
	s.NoError(json.Unmarshal(w.Body.Bytes(), &status))
	s.True(status.IsActive)
	s.NotNil(status.StartedAt)

	w = performRequest(s.router, http.MethodPost, "/api/v1/warming/stop", nil)
	s.Equal(http.StatusOK, w.Code)

	w = performRequest(s.router, http.MethodGet, "/api/v1/warming/status", nil)
	s.NoError(json.Unmarshal(w.Body.Bytes(), &status))
	s.False(status.IsActive)
}

func (s *WarmingHandlerTestSuite) TestStart_PreconditionIsClientError() {
	tests := []error{warming.ErrNoPrimary, warming.ErrPrimaryNoPhone, warming.ErrNoMessages}

	for _, precondition := range tests {
		s.Run(precondition.Error(), func() {
			s.warming.SetError("Start", precondition)

			w := performRequest(s.router, http.MethodPost, "/api/v1/warming/start", nil)

			s.Equal(http.StatusBadRequest, w.Code)
			var result models.WarmingActionResult
			s.NoError(json.Unmarshal(w.Body.Bytes(), &result))
			s.False(result.Success)
			s.Equal(precondition.Error(), result.Error)
		})
	}
}

func (s *WarmingHandlerTestSuite) TestStart_StorageFailure() {
	s.warming.SetError("Start", errors.New("db down"))

	w := performRequest(s.router, http.MethodPost, "/api/v1/warming/start", nil)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "db down")
}

func (s *WarmingHandlerTestSuite) TestStop_IdleTenantSucceeds() {
	w := performRequest(s.router, http.MethodPost, "/api/v1/warming/stop", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"success":true`)
}

func (s *WarmingHandlerTestSuite) TestLogs() {
	s.warming.entries = []models.ActivityLogEntry{{ID: uuid.New(), Action: models.ActionStarted}}

	w := performRequest(s.router, http.MethodGet, "/api/v1/warming/logs?limit=20", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(20, s.warming.lastLimit)

	var entries []models.ActivityLogEntry
	s.NoError(json.Unmarshal(w.Body.Bytes(), &entries))
	s.Len(entries, 1)

	w = performRequest(s.router, http.MethodGet, "/api/v1/warming/logs", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(0, s.warming.lastLimit, "default is applied by the diagnostics layer")
}

func (s *WarmingHandlerTestSuite) TestLogs_EmptyIsArray() {
	w := performRequest(s.router, http.MethodGet, "/api/v1/warming/logs", nil)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *WarmingHandlerTestSuite) TestLogs_BadLimit() {
	w := performRequest(s.router, http.MethodGet, "/api/v1/warming/logs?limit=lots", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(0, s.warming.GetCallCount("ActivityLog"))
}

func (s *WarmingHandlerTestSuite) TestLogs_Failure() {
	s.warming.SetError("ActivityLog", errors.New("boom"))

	w := performRequest(s.router, http.MethodGet, "/api/v1/warming/logs", nil)

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *WarmingHandlerTestSuite) TestDiagnostics() {
	s.warming.diagnostics = &models.WarmingDiagnostics{
		Config:       models.DefaultWarmingConfig(),
		Requirements: models.WarmingRequirements{HasPrimaryInstance: true, MessagesCount: 3},
		Stats:        models.WarmingStats{Last24h: models.Last24hStats{ByAction: map[models.Action]int{}}},
	}

	w := performRequest(s.router, http.MethodGet, "/api/v1/warming/diagnostics", nil)

	s.Equal(http.StatusOK, w.Code)
	var report models.WarmingDiagnostics
	s.NoError(json.Unmarshal(w.Body.Bytes(), &report))
	s.True(report.Requirements.HasPrimaryInstance)
	s.Equal(3, report.Requirements.MessagesCount)

	s.warming.SetError("Collect", errors.New("boom"))
	w = performRequest(s.router, http.MethodGet, "/api/v1/warming/diagnostics", nil)
	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *WarmingHandlerTestSuite) TestMissingTenantIsUnauthorized() {
	handler := NewWarmingHandler(s.warming, s.warming, zap.NewNop())
	router := gin.New()
	router.POST("/start", handler.Start)

	w := performRequest(router, http.MethodPost, "/start", nil)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(0, s.warming.GetCallCount("Start"))
}

func TestWarmingHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WarmingHandlerTestSuite))
}
