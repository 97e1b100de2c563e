package warming

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/metrics"
	"github.com/galihcitta/number-warming-service/internal/models"
	"github.com/galihcitta/number-warming-service/internal/repository"
)

// ErrLogUnavailable means the audit table does not exist. Callers drop the
// record and carry on.
var ErrLogUnavailable = errors.New("activity log storage unavailable")

// ActivityLogger is the best-effort audit sink. Every record is mirrored to
// zap even when storage is unavailable.
type ActivityLogger struct {
	store     LogStore
	available atomic.Bool
	logger    *zap.Logger
}

func NewActivityLogger(store LogStore, logger *zap.Logger) *ActivityLogger {
	a := &ActivityLogger{
		store:  store,
		logger: logger,
	}
	a.available.Store(true)
	return a
}

// Probe checks once whether the audit table exists. A failed probe leaves
// the logger enabled; the runtime check still catches a missing table.
func (a *ActivityLogger) Probe(ctx context.Context) error {
	exists, err := a.store.TableExists(ctx)
	if err != nil {
		return fmt.Errorf("probe activity log: %w", err)
	}
	a.available.Store(exists)
	if !exists {
		a.logger.Warn("warming_logs table missing, activity will only be written to the process log")
	}
	return nil
}

func (a *ActivityLogger) Available() bool {
	return a.available.Load()
}

// Record stores one entry. It returns ErrLogUnavailable when the table is
// missing and a wrapped error for any other storage failure.
func (a *ActivityLogger) Record(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) error {
	a.mirror(tenantID, action, details)
	metrics.IncrementActivity(string(action))

	if !a.available.Load() {
		return ErrLogUnavailable
	}

	if err := a.store.Insert(ctx, tenantID, action, details); err != nil {
		if repository.IsUndefinedTable(err) {
			a.available.Store(false)
			a.logger.Warn("warming_logs table disappeared, disabling activity storage")
			return ErrLogUnavailable
		}
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

func (a *ActivityLogger) mirror(tenantID uuid.UUID, action models.Action, details models.ActivityDetails) {
	fields := []zap.Field{
		zap.String("tenant_id", tenantID.String()),
		zap.String("action", string(action)),
		zap.Any("details", details),
	}
	if action == models.ActionError {
		a.logger.Warn("Warming activity", fields...)
		return
	}
	a.logger.Info("Warming activity", fields...)
}
