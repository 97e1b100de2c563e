package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

type ActivityLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewActivityLogRepository(db *pgxpool.Pool, logger *zap.Logger) *ActivityLogRepository {
	return &ActivityLogRepository{
		db:     db,
		logger: logger,
	}
}

// TableExists reports whether warming_logs has been migrated.
func (r *ActivityLogRepository) TableExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT to_regclass('public.warming_logs') IS NOT NULL`).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to probe warming_logs: %w", err)
	}
	return exists, nil
}

func (r *ActivityLogRepository) Insert(ctx context.Context, tenantID uuid.UUID, action models.Action, details models.ActivityDetails) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}
	if details == nil {
		payload = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `INSERT INTO warming_logs (user_id, action, details) VALUES ($1, $2, $3)`,
		tenantID, string(action), payload)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

// ListRecent returns the tenant's newest entries first.
func (r *ActivityLogRepository) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	query := `SELECT id, user_id, action, details, created_at FROM warming_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	return collectEntries(rows)
}

// RecentErrors returns the newest ERROR entries.
func (r *ActivityLogRepository) RecentErrors(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ActivityLogEntry, error) {
	query := `SELECT id, user_id, action, details, created_at FROM warming_logs
		WHERE user_id = $1 AND action = $2 ORDER BY created_at DESC LIMIT $3`

	rows, err := r.db.Query(ctx, query, tenantID, string(models.ActionError), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent errors: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]models.ActivityLogEntry, error) {
	defer rows.Close()

	entries := []models.ActivityLogEntry{}
	for rows.Next() {
		var e models.ActivityLogEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		e.Details = json.RawMessage(details)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

// HourlyCounts groups the entries created since `since` by hour and action.
func (r *ActivityLogRepository) HourlyCounts(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]models.ActionCount, error) {
	query := `SELECT date_trunc('hour', created_at) AS hour, action, COUNT(*)
		FROM warming_logs
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY hour, action
		ORDER BY hour DESC`

	rows, err := r.db.Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly activity: %w", err)
	}
	defer rows.Close()

	var counts []models.ActionCount
	for rows.Next() {
		var c models.ActionCount
		if err := rows.Scan(&c.Hour, &c.Action, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hourly activity: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return counts, nil
}

// ResumableTenants returns tenants whose latest lifecycle entry is STARTED.
func (r *ActivityLogRepository) ResumableTenants(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM (
			SELECT DISTINCT ON (user_id) user_id, action
			FROM warming_logs
			WHERE action IN ($1, $2)
			ORDER BY user_id, created_at DESC
		) latest
		WHERE action = $1`

	rows, err := r.db.Query(ctx, query, string(models.ActionStarted), string(models.ActionStopped))
	if err != nil {
		return nil, fmt.Errorf("failed to query resumable tenants: %w", err)
	}
	defer rows.Close()

	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		tenants = append(tenants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return tenants, nil
}
