package warming

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/services/gateway"
)

// The interfaces below are satisfied by the repository package; tests use
// in-memory fakes.

type ConfigStore interface {
	GetConfig(ctx context.Context, tenantID uuid.UUID) (*models.WarmingConfig, error)
}

type InstanceStore interface {
	GetPrimary(ctx context.Context, tenantID uuid.UUID) (*models.Instance, error)
	ListConnectedSecondaries(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error)
	IncrementSent(ctx context.Context, id uuid.UUID) error
	IncrementReceived(ctx context.Context, id uuid.UUID) error
}

type TemplateStore interface {
	Random(ctx context.Context, tenantID uuid.UUID) (*models.MessageTemplate, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int, error)
}

type ClientStore interface {
	Random(ctx context.Context, tenantID uuid.UUID) (*models.ClientNumber, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int, error)
}

type LogStore interface {
	TableExists(ctx context.Context) (bool, error)
	Insert(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) error
}

// LogReader backs the activity and diagnostics views.
type LogReader interface {
	ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error)
	RecentErrors(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error)
	HourlyCounts(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]models.ActionCount, error)
}

// LifecycleStore lists tenants whose last lifecycle entry is STARTED.
type LifecycleStore interface {
	ResumableTenants(ctx context.Context) ([]uuid.UUID, error)
}

// Sender delivers one text message through the gateway.
type Sender interface {
	SendText(ctx context.Context, inst *models.Instance, number, text string) gateway.SendResult
}
