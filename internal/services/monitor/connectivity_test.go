package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

type MockInstanceStore struct {
	instances []models.Instance
	updates   map[uuid.UUID]models.InstanceStatus
	calls     map[string]int
	errors    map[string]error
	mutex     sync.RWMutex
}

func NewMockInstanceStore(list ...models.Instance) *MockInstanceStore {
	return &MockInstanceStore{
		instances: list,
		updates:   make(map[uuid.UUID]models.InstanceStatus),
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

func (m *MockInstanceStore) Updated(id uuid.UUID) (models.InstanceStatus, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.updates[id]
	return s, ok
}

func (m *MockInstanceStore) ListAll(ctx context.Context) ([]models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["ListAll"]++
	if err := m.errors["ListAll"]; err != nil {
		return nil, err
	}
	return append([]models.Instance(nil), m.instances...), nil
}

func (m *MockInstanceStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InstanceStatus) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["UpdateStatus"]++
	if err := m.errors["UpdateStatus"]; err != nil {
		return err
	}
	m.updates[id] = status
	return nil
}

type stateReply struct {
	status models.InstanceStatus
	raw    string
	err    error
}

type MockChecker struct {
	replies map[string]stateReply
	mutex   sync.Mutex
}

func (m *MockChecker) ConnectionState(ctx context.Context, inst *models.Instance) (models.InstanceStatus, string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	r, ok := m.replies[inst.Name]
	if !ok {
		return models.InstanceDisconnected, "http 404", nil
	}
	return r.status, r.raw, r.err
}

type MonitorTestSuite struct {
	suite.Suite
	online  models.Instance
	offline models.Instance
	broken  models.Instance
	store   *MockInstanceStore
	checker *MockChecker
	monitor *Monitor
}

func (suite *MonitorTestSuite) SetupTest() {
	suite.online = models.Instance{ID: uuid.New(), Name: "online", Status: models.InstanceDisconnected}
	suite.offline = models.Instance{ID: uuid.New(), Name: "offline", Status: models.InstanceConnected}
	suite.broken = models.Instance{ID: uuid.New(), Name: "broken", Status: models.InstanceConnected}

	suite.store = NewMockInstanceStore(suite.online, suite.offline, suite.broken)
	suite.checker = &MockChecker{replies: map[string]stateReply{
		"online":  {status: models.InstanceConnected, raw: "open"},
		"offline": {status: models.InstanceDisconnected, raw: "close"},
		"broken":  {status: models.InstanceDisconnected, err: errors.New("connection refused")},
	}}
	suite.monitor = NewMonitor(suite.store, suite.checker, 10*time.Millisecond, zap.NewNop())
}

func (suite *MonitorTestSuite) TearDownTest() {
	suite.monitor.Stop()
}

func (suite *MonitorTestSuite) TestCheck_PersistsChangedStatus() {
	resp, err := suite.monitor.Check(context.Background(), &suite.online)

	suite.Require().NoError(err)
	suite.Equal(models.InstanceConnected, resp.Status)
	suite.Equal("open", resp.RawState)
	status, ok := suite.store.Updated(suite.online.ID)
	suite.True(ok)
	suite.Equal(models.InstanceConnected, status)
}

func (suite *MonitorTestSuite) TestCheck_UnchangedStatusNotWritten() {
	inst := suite.offline
	inst.Status = models.InstanceDisconnected

	_, err := suite.monitor.Check(context.Background(), &inst)

	suite.NoError(err)
	suite.Equal(0, suite.store.GetCallCount("UpdateStatus"))
}

func (suite *MonitorTestSuite) TestCheck_UnreachableGatewayIsDisconnected() {
	resp, err := suite.monitor.Check(context.Background(), &suite.broken)

	suite.Require().NoError(err)
	suite.Equal(models.InstanceDisconnected, resp.Status)
	suite.Contains(resp.Message, "connection refused")
	status, _ := suite.store.Updated(suite.broken.ID)
	suite.Equal(models.InstanceDisconnected, status)
}

func (suite *MonitorTestSuite) TestCheck_PersistFailure() {
	suite.store.SetError("UpdateStatus", errors.New("db down"))

	_, err := suite.monitor.Check(context.Background(), &suite.online)
	suite.ErrorContains(err, "db down")
}

func (suite *MonitorTestSuite) TestCheckAll() {
	checked, err := suite.monitor.CheckAll(context.Background())

	suite.NoError(err)
	suite.Equal(3, checked)
	suite.Equal(3, suite.store.GetCallCount("UpdateStatus"))
}

func (suite *MonitorTestSuite) TestCheckAll_ListFailure() {
	suite.store.SetError("ListAll", errors.New("db down"))

	_, err := suite.monitor.CheckAll(context.Background())
	suite.Error(err)
}

func (suite *MonitorTestSuite) TestStart_SweepsPeriodically() {
	suite.monitor.Start()
	suite.monitor.Start()

	suite.Eventually(func() bool {
		return suite.store.GetCallCount("ListAll") >= 2
	}, time.Second, 5*time.Millisecond)

	suite.monitor.Stop()
	calls := suite.store.GetCallCount("ListAll")
	time.Sleep(50 * time.Millisecond)
	suite.Equal(calls, suite.store.GetCallCount("ListAll"))
}

func TestMonitorTestSuite(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}
