package warming

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/services/gateway"
)

// MockConfigStore returns a fixed config per tenant, or the defaults.
type MockConfigStore struct {
	configs map[uuid.UUID]*models.WarmingConfig
	errors  map[string]error
	mutex   sync.RWMutex
}

func NewMockConfigStore() *MockConfigStore {
	return &MockConfigStore{
		configs: make(map[uuid.UUID]*models.WarmingConfig),
		errors:  make(map[string]error),
	}
}

func (m *MockConfigStore) Set(tenantID uuid.UUID, cfg *models.WarmingConfig) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.configs[tenantID] = cfg
}

func (m *MockConfigStore) SetError(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.errors[method] = err
}

func (m *MockConfigStore) GetConfig(ctx context.Context, tenantID uuid.UUID) (*models.WarmingConfig, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := m.errors["GetConfig"]; err != nil {
		return nil, err
	}
	if cfg, ok := m.configs[tenantID]; ok {
		copied := *cfg
		return &copied, nil
	}
	return models.DefaultWarmingConfig(), nil
}

// MockInstanceStore keeps instances in memory and applies counter
// increments under its lock, like the storage layer does.
type MockInstanceStore struct {
	instances map[uuid.UUID]*models.Instance
	calls     map[string]int
	errors    map[string]error
	panicOn   string
	mutex     sync.RWMutex
}

func NewMockInstanceStore() *MockInstanceStore {
	return &MockInstanceStore{
		instances: make(map[uuid.UUID]*models.Instance),
		calls:     make(map[string]int),
		errors:    make(map[string]error),
	}
}

func (m *MockInstanceStore) Add(inst models.Instance) *models.Instance {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	m.instances[inst.ID] = &inst
	return &inst
}

func (m *MockInstanceStore) Update(id uuid.UUID, fn func(*models.Instance)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if inst, ok := m.instances[id]; ok {
		fn(inst)
	}
}

func (m *MockInstanceStore) Get(id uuid.UUID) models.Instance {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return *m.instances[id]
}

func (m *MockInstanceStore) SetError(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.errors[method] = err
}

func (m *MockInstanceStore) SetPanic(method string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.panicOn = method
}

func (m *MockInstanceStore) GetCallCount(method string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.calls[method]
}

func (m *MockInstanceStore) enter(method string) error {
	m.calls[method]++
	if m.panicOn == method {
		panic("mock panic in " + method)
	}
	return m.errors[method]
}

func (m *MockInstanceStore) GetPrimary(ctx context.Context, tenantID uuid.UUID) (*models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.enter("GetPrimary"); err != nil {
		return nil, err
	}
	for _, inst := range m.instances {
		if inst.IsPrimary && inst.OwnedBy(tenantID) {
			copied := *inst
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockInstanceStore) ListConnectedSecondaries(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.enter("ListConnectedSecondaries"); err != nil {
		return nil, err
	}
	var list []models.Instance
	for _, inst := range m.instances {
		if !inst.IsPrimary && inst.IsConnected() && inst.OwnedBy(tenantID) {
			list = append(list, *inst)
		}
	}
	return list, nil
}

func (m *MockInstanceStore) IncrementSent(ctx context.Context, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.enter("IncrementSent"); err != nil {
		return err
	}
	if inst, ok := m.instances[id]; ok {
		inst.MessagesSent++
		now := time.Now()
		inst.LastActivity = &now
	}
	return nil
}

func (m *MockInstanceStore) IncrementReceived(ctx context.Context, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.enter("IncrementReceived"); err != nil {
		return err
	}
	if inst, ok := m.instances[id]; ok {
		inst.MessagesReceived++
		now := time.Now()
		inst.LastActivity = &now
	}
	return nil
}

type MockTemplateStore struct {
	contents map[uuid.UUID][]string
	errors   map[string]error
	mutex    sync.RWMutex
}

func NewMockTemplateStore() *MockTemplateStore {
	return &MockTemplateStore{
		contents: make(map[uuid.UUID][]string),
		errors:   make(map[string]error),
	}
}

func (m *MockTemplateStore) Add(tenantID uuid.UUID, content ...string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.contents[tenantID] = append(m.contents[tenantID], content...)
}

func (m *MockTemplateStore) SetError(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.errors[method] = err
}

func (m *MockTemplateStore) Random(ctx context.Context, tenantID uuid.UUID) (*models.MessageTemplate, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := m.errors["Random"]; err != nil {
		return nil, err
	}
	list := m.contents[tenantID]
	if len(list) == 0 {
		return nil, nil
	}
	return &models.MessageTemplate{ID: uuid.New(), UserID: tenantID, Content: list[0]}, nil
}

func (m *MockTemplateStore) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := m.errors["Count"]; err != nil {
		return 0, err
	}
	return len(m.contents[tenantID]), nil
}

type MockClientStore struct {
	clients map[uuid.UUID][]models.ClientNumber
	errors  map[string]error
	mutex   sync.RWMutex
}

func NewMockClientStore() *MockClientStore {
	return &MockClientStore{
		clients: make(map[uuid.UUID][]models.ClientNumber),
		errors:  make(map[string]error),
	}
}

func (m *MockClientStore) Add(tenantID uuid.UUID, phone, name string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c := models.ClientNumber{ID: uuid.New(), UserID: tenantID, PhoneNumber: phone}
	if name != "" {
		c.Name = &name
	}
	m.clients[tenantID] = append(m.clients[tenantID], c)
}

func (m *MockClientStore) Random(ctx context.Context, tenantID uuid.UUID) (*models.ClientNumber, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := m.errors["Random"]; err != nil {
		return nil, err
	}
	list := m.clients[tenantID]
	if len(list) == 0 {
		return nil, nil
	}
	c := list[0]
	return &c, nil
}

func (m *MockClientStore) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := m.errors["Count"]; err != nil {
		return 0, err
	}
	return len(m.clients[tenantID]), nil
}

// MockLogStore records activity entries and serves the read side.
type MockLogStore struct {
	entries   []models.ActivityLogEntry
	exists    bool
	calls     map[string]int
	errors    map[string]error
	resumable []uuid.UUID
	hourly    []models.ActionCount
	mutex     sync.RWMutex
}

func NewMockLogStore() *MockLogStore {
	return &MockLogStore{
		exists: true,
		calls:  make(map[string]int),
		errors: make(map[string]error),
	}
}

func (m *MockLogStore) SetError(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.errors[method] = err
}

func (m *MockLogStore) GetCallCount(method string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.calls[method]
}

func (m *MockLogStore) TableExists(ctx context.Context) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls["TableExists"]++
	if err := m.errors["TableExists"]; err != nil {
		return false, err
	}
	return m.exists, nil
}

func (m *MockLogStore) Insert(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.calls["Insert"]++
	if err := m.errors["Insert"]; err != nil {
		return err
	}
	// pgx refuses to run on a cancelled context.
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, _ := json.Marshal(details)
	m.entries = append(m.entries, models.ActivityLogEntry{
		ID:        uuid.New(),
		UserID:    tenantID,
		Action:    action,
		Details:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MockLogStore) Entries(tenantID uuid.UUID) []models.ActivityLogEntry {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.ActivityLogEntry
	for _, e := range m.entries {
		if e.UserID == tenantID {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockLogStore) Actions(tenantID uuid.UUID) []models.Action {
	var actions []models.Action
	for _, e := range m.Entries(tenantID) {
		actions = append(actions, e.Action)
	}
	return actions
}

func (m *MockLogStore) CountAction(tenantID uuid.UUID, action models.Action) int {
	n := 0
	for _, e := range m.Entries(tenantID) {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (m *MockLogStore) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	m.mutex.RLock()
	err := m.errors["ListRecent"]
	m.mutex.RUnlock()
	if err != nil {
		return nil, err
	}

	all := m.Entries(tenantID)
	out := []models.ActivityLogEntry{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MockLogStore) RecentErrors(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	m.mutex.RLock()
	err := m.errors["RecentErrors"]
	m.mutex.RUnlock()
	if err != nil {
		return nil, err
	}

	all := m.Entries(tenantID)
	out := []models.ActivityLogEntry{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if all[i].Action == models.ActionError {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (m *MockLogStore) HourlyCounts(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]models.ActionCount, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if err := m.errors["HourlyCounts"]; err != nil {
		return nil, err
	}
	return m.hourly, nil
}

func (m *MockLogStore) ResumableTenants(ctx context.Context) ([]uuid.UUID, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if err := m.errors["ResumableTenants"]; err != nil {
		return nil, err
	}
	return m.resumable, nil
}

// MockSender records deliveries and fails when told to.
type MockSender struct {
	sent    []sentMessage
	fail    string
	blockCh chan struct{}
	mutex   sync.Mutex
}

type sentMessage struct {
	From   string
	Number string
	Text   string
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) FailWith(msg string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fail = msg
}

// BlockUntil makes every SendText wait for ch to be closed.
func (m *MockSender) BlockUntil(ch chan struct{}) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.blockCh = ch
}

func (m *MockSender) SendText(ctx context.Context, inst *models.Instance, number, text string) gateway.SendResult {
	m.mutex.Lock()
	block := m.blockCh
	m.mutex.Unlock()
	if block != nil {
		<-block
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, sentMessage{From: inst.Name, Number: number, Text: text})
	if m.fail != "" {
		return gateway.SendResult{Error: m.fail}
	}
	return gateway.SendResult{Success: true, Data: json.RawMessage(`{"status":"PENDING"}`)}
}

func (m *MockSender) Sent() []sentMessage {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// fixedRandom always returns the same draw; Intn picks the lower bound and
// Shuffle keeps the input order.
type fixedRandom struct {
	draw float64
}

func (f fixedRandom) Float64() float64 { return f.draw }
func (f fixedRandom) Intn(n int) int { return 0 }
func (f fixedRandom) Shuffle(n int, swap func(i, j int)) {}

// overlapRunner counts cycles running at the same time. Cycles block until
// release is closed.
type overlapRunner struct {
	release  chan struct{}
	inFlight int
	maxSeen  int
	calls    int
	mutex    sync.Mutex
}

func (r *overlapRunner) RunCycle(ctx context.Context, tenantID uuid.UUID) CycleOutcome {
	r.mutex.Lock()
	r.calls++
	r.inFlight++
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
	}
	r.mutex.Unlock()

	<-r.release

	r.mutex.Lock()
	r.inFlight--
	r.mutex.Unlock()
	return CycleOutcome{Reschedule: true, Delay: 5 * time.Millisecond}
}

func (r *overlapRunner) Calls() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.calls
}

func (r *overlapRunner) MaxInFlight() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.maxSeen
}
