package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
)

type InstanceStore interface {
	ListAll(ctx context.Context) ([]models.Instance, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InstanceStatus) error
}

// StateChecker is implemented by gateway.EvolutionClient.
type StateChecker interface {
	ConnectionState(ctx context.Context, inst *models.Instance) (models.InstanceStatus, string, error)
}

// Monitor asks the gateway for each instance's connection state and keeps
// the stored status in line with it.
type Monitor struct {
	instances InstanceStore
	checker   StateChecker
	interval  time.Duration
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mutex  sync.Mutex
}

func NewMonitor(instances InstanceStore, checker StateChecker, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		instances: instances,
		checker:   checker,
		interval:  interval,
		logger:    logger,
	}
}

// Check queries one instance and persists the result. A gateway that
// cannot be reached counts as disconnected.
func (m *Monitor) Check(ctx context.Context, inst *models.Instance) (*models.InstanceStatusResponse, error) {
	status, raw, err := m.checker.ConnectionState(ctx, inst)
	resp := &models.InstanceStatusResponse{Status: status, RawState: raw}
	if err != nil {
		resp.Status = models.InstanceDisconnected
		resp.Message = fmt.Sprintf("gateway unreachable: %v", err)
	} else {
		resp.Message = "instance is " + string(status)
	}
	metrics.IncrementStatusChecks(string(resp.Status))

	if resp.Status != inst.Status {
		if err := m.instances.UpdateStatus(ctx, inst.ID, resp.Status); err != nil {
			return nil, fmt.Errorf("failed to persist instance status: %w", err)
		}
		m.logger.Info("Instance status changed",
			zap.String("instance", inst.Name),
			zap.String("from", string(inst.Status)),
			zap.String("to", string(resp.Status)))
	}
	return resp, nil
}

// CheckAll runs Check over every instance and returns how many were
// checked successfully.
func (m *Monitor) CheckAll(ctx context.Context) (int, error) {
	list, err := m.instances.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list instances: %w", err)
	}

	checked := 0
	for i := range list {
		if ctx.Err() != nil {
			return checked, ctx.Err()
		}
		if _, err := m.Check(ctx, &list[i]); err != nil {
			m.logger.Warn("Connectivity check failed",
				zap.String("instance", list[i].Name),
				zap.Error(err))
			continue
		}
		checked++
	}
	return checked, nil
}

// Start runs CheckAll every interval until Stop.
func (m *Monitor) Start() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.cancel != nil || m.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("Connectivity monitor started", zap.Duration("interval", m.interval))
}

func (m *Monitor) Stop() {
	m.mutex.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.logger.Info("Connectivity monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checked, err := m.CheckAll(ctx)
			if err != nil && ctx.Err() == nil {
				m.logger.Error("Connectivity sweep failed", zap.Error(err))
				continue
			}
			m.logger.Debug("Connectivity sweep completed", zap.Int("checked", checked))
		}
	}
}
