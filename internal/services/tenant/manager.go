package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

var ErrInvalidName = errors.New("tenant name is required")

type TenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetAll(ctx context.Context) ([]models.Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// WarmingController is implemented by warming.Registry.
type WarmingController interface {
	Stop(ctx context.Context, tenantID uuid.UUID) *models.WarmingActionResult
	Status(tenantID uuid.UUID) models.WarmingStatus
}

// Manager provisions tenants. Removing a tenant stops its warming session
// before the cascade delete so no cycle runs against vanished rows.
type Manager struct {
	tenants TenantStore
	warming WarmingController
	logger  *zap.Logger
}

func NewManager(tenants TenantStore, warming WarmingController, logger *zap.Logger) *Manager {
	return &Manager{
		tenants: tenants,
		warming: warming,
		logger:  logger,
	}
}

func (m *Manager) CreateTenant(ctx context.Context, req *models.CreateTenantRequest) (*models.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	tenant := &models.Tenant{
		ID:   uuid.New(),
		Name: name,
	}
	if err := m.tenants.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant in database: %w", err)
	}

	m.logger.Info("Tenant created successfully",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))
	return tenant, nil
}

func (m *Manager) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return m.tenants.GetByID(ctx, id)
}

func (m *Manager) GetAllTenants(ctx context.Context) ([]models.Tenant, error) {
	return m.tenants.GetAll(ctx)
}

func (m *Manager) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	if _, err := m.tenants.GetByID(ctx, id); err != nil {
		return err
	}

	m.warming.Stop(ctx, id)

	if err := m.tenants.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tenant from database: %w", err)
	}

	m.logger.Info("Tenant deleted successfully", zap.String("tenant_id", id.String()))
	return nil
}

// TenantStats pairs a tenant with its live warming state.
type TenantStats struct {
	TenantID uuid.UUID            `json:"tenantId"`
	Name     string               `json:"name"`
	Warming  models.WarmingStatus `json:"warming"`
}

func (m *Manager) GetTenantStats(ctx context.Context) ([]TenantStats, error) {
	tenants, err := m.tenants.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenants: %w", err)
	}

	stats := make([]TenantStats, 0, len(tenants))
	for _, t := range tenants {
		stats = append(stats, TenantStats{
			TenantID: t.ID,
			Name:     t.Name,
			Warming:  m.warming.Status(t.ID),
		})
	}
	return stats, nil
}
