package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/middleware"
	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/repository"
)

type MockInstanceStore struct {
	instances map[uuid.UUID]*models.Instance
	calls     map[string]int
	errors    map[string]error
	deletedAs uuid.UUID
	mutex     sync.RWMutex
}

func NewMockInstanceStore() *MockInstanceStore {
	return &MockInstanceStore{
		instances: make(map[uuid.UUID]*models.Instance),
		calls:     make(map[string]int),
		errors:    make(map[string]error),
	}
}

func (m *MockInstanceStore) SetError(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.errors[method] = err
}

func (m *MockInstanceStore) GetCallCount(method string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.calls[method]
}

func (m *MockInstanceStore) Add(inst models.Instance) *models.Instance {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	inst.ID = uuid.New()
	m.instances[inst.ID] = &inst
	return &inst
}

func (m *MockInstanceStore) visible(tenantID, id uuid.UUID) (*models.Instance, bool) {
	inst, ok := m.instances[id]
	if !ok || !(inst.IsGlobal || inst.OwnedBy(tenantID)) {
		return nil, false
	}
	return inst, true
}

func (m *MockInstanceStore) ListVisible(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["ListVisible"]++
	if err := m.errors["ListVisible"]; err != nil {
		return nil, err
	}
	var out []models.Instance
	for id := range m.instances {
		if inst, ok := m.visible(tenantID, id); ok {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (m *MockInstanceStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["GetByID"]++
	inst, ok := m.visible(tenantID, id)
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, repository.ErrNotFound)
	}
	copied := *inst
	return &copied, nil
}

func (m *MockInstanceStore) Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateInstanceRequest) (*models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["Create"]++
	if err := m.errors["Create"]; err != nil {
		return nil, err
	}
	inst := &models.Instance{ID: uuid.New(), Name: req.Name, APIURL: req.APIURL, APIKey: req.APIKey,
		IsPrimary: req.IsPrimary, IsGlobal: req.IsGlobal, Status: models.InstanceDisconnected}
	if !req.IsGlobal {
		owner := tenantID
		inst.UserID = &owner
	}
	m.instances[inst.ID] = inst
	return inst, nil
}

func (m *MockInstanceStore) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateInstanceRequest) (*models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["Update"]++
	inst, ok := m.instances[id]
	if !ok || !inst.OwnedBy(tenantID) {
		return nil, fmt.Errorf("instance %s: %w", id, repository.ErrNotFound)
	}
	if req.Name != nil {
		inst.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		inst.PhoneNumber = *req.PhoneNumber
	}
	return inst, nil
}

func (m *MockInstanceStore) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["Delete"]++
	m.deletedAs = tenantID
	delete(m.instances, id)
	return nil
}

type MockStatusChecker struct {
	response *models.InstanceStatusResponse
	err      error
}

func (m *MockStatusChecker) Check(ctx context.Context, inst *models.Instance) (*models.InstanceStatusResponse, error) {
	return m.response, m.err
}

type InstanceHandlerTestSuite struct {
	suite.Suite
	tenantID  uuid.UUID
	instances *MockInstanceStore
	checker   *MockStatusChecker
	handler   *InstanceHandler
}

func (s *InstanceHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.tenantID = uuid.New()
	s.instances = NewMockInstanceStore()
	s.checker = &MockStatusChecker{response: &models.InstanceStatusResponse{Status: models.InstanceConnected, RawState: "open"}}
	s.handler = NewInstanceHandler(s.instances, s.checker, zap.NewNop())
}

func (s *InstanceHandlerTestSuite) router(role string) *gin.Engine {
	router := gin.New()
	group := router.Group("/instances", identity(s.tenantID, role))
	{
		group.GET("", s.handler.List)
		group.POST("", s.handler.Create)
		group.PUT("/:id", s.handler.Update)
		group.DELETE("/:id", s.handler.Delete)
		group.POST("/:id/check-status", s.handler.CheckStatus)
	}
	return router
}

func (s *InstanceHandlerTestSuite) own() *models.Instance {
	owner := s.tenantID
	return s.instances.Add(models.Instance{UserID: &owner, Name: "mine", IsPrimary: true})
}

func (s *InstanceHandlerTestSuite) TestListIncludesGlobal() {
	s.own()
	s.instances.Add(models.Instance{Name: "shared", IsGlobal: true})
	other := uuid.New()
	s.instances.Add(models.Instance{UserID: &other, Name: "theirs"})

	w := performRequest(s.router(middleware.RoleUser), http.MethodGet, "/instances", nil)

	s.Equal(http.StatusOK, w.Code)
	var list []models.Instance
	s.NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Len(list, 2)
}

func (s *InstanceHandlerTestSuite) TestCreate() {
	req := models.CreateInstanceRequest{Name: "new", APIURL: "http://evolution.local", APIKey: "k", IsPrimary: true}

	w := performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances", req)

	s.Equal(http.StatusCreated, w.Code)
	var inst models.Instance
	s.NoError(json.Unmarshal(w.Body.Bytes(), &inst))
	s.True(inst.IsPrimary)
	s.Require().NotNil(inst.UserID)
	s.Equal(s.tenantID, *inst.UserID)
}

func (s *InstanceHandlerTestSuite) TestCreate_Validation() {
	w := performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances",
		`{"name":"x","apiUrl":"not a url","apiKey":"k"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(0, s.instances.GetCallCount("Create"))
}

func (s *InstanceHandlerTestSuite) TestCreateGlobal_AdminOnly() {
	req := models.CreateInstanceRequest{Name: "shared", APIURL: "http://evolution.local", APIKey: "k", IsGlobal: true}

	w := performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances", req)
	s.Equal(http.StatusForbidden, w.Code)

	w = performRequest(s.router(middleware.RoleAdmin), http.MethodPost, "/instances", req)
	s.Equal(http.StatusCreated, w.Code)
	s.Equal(1, s.instances.GetCallCount("Create"))
}

func (s *InstanceHandlerTestSuite) TestCreate_StoreFailure() {
	s.instances.SetError("Create", errors.New("unique violation"))
	req := models.CreateInstanceRequest{Name: "dup", APIURL: "http://evolution.local", APIKey: "k"}

	w := performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances", req)

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *InstanceHandlerTestSuite) TestUpdate() {
	inst := s.own()
	phone := "5511999990000"

	w := performRequest(s.router(middleware.RoleUser), http.MethodPut, "/instances/"+inst.ID.String(),
		models.UpdateInstanceRequest{PhoneNumber: &phone})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), phone)

	shared := s.instances.Add(models.Instance{Name: "shared", IsGlobal: true})
	w = performRequest(s.router(middleware.RoleUser), http.MethodPut, "/instances/"+shared.ID.String(),
		models.UpdateInstanceRequest{PhoneNumber: &phone})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *InstanceHandlerTestSuite) TestDelete() {
	inst := s.own()

	w := performRequest(s.router(middleware.RoleUser), http.MethodDelete, "/instances/"+inst.ID.String(), nil)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal(s.tenantID, s.instances.deletedAs)
}

func (s *InstanceHandlerTestSuite) TestDeleteGlobal() {
	shared := s.instances.Add(models.Instance{Name: "shared", IsGlobal: true})
	path := "/instances/" + shared.ID.String()

	w := performRequest(s.router(middleware.RoleUser), http.MethodDelete, path, nil)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal(0, s.instances.GetCallCount("Delete"))

	w = performRequest(s.router(middleware.RoleAdmin), http.MethodDelete, path, nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal(uuid.Nil, s.instances.deletedAs)
}

func (s *InstanceHandlerTestSuite) TestDelete_NotVisible() {
	other := uuid.New()
	theirs := s.instances.Add(models.Instance{UserID: &other, Name: "theirs"})

	w := performRequest(s.router(middleware.RoleUser), http.MethodDelete, "/instances/"+theirs.ID.String(), nil)

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(0, s.instances.GetCallCount("Delete"))
}

func (s *InstanceHandlerTestSuite) TestCheckStatus() {
	inst := s.own()

	w := performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances/"+inst.ID.String()+"/check-status", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp models.InstanceStatusResponse
	s.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(models.InstanceConnected, resp.Status)
	s.Equal("open", resp.RawState)

	s.checker.err = errors.New("persist failed")
	w = performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances/"+inst.ID.String()+"/check-status", nil)
	s.Equal(http.StatusInternalServerError, w.Code)

	w = performRequest(s.router(middleware.RoleUser), http.MethodPost, "/instances/bad/check-status", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestInstanceHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(InstanceHandlerTestSuite))
}
