package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

const instanceColumns = `id, user_id, name, api_url, api_key, COALESCE(phone_number, ''), status,
	is_primary, is_global, messages_sent, messages_received, last_activity, created_at, updated_at`

type InstanceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInstanceRepository(db *pgxpool.Pool, logger *zap.Logger) *InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

func scanInstance(row pgx.Row) (*models.Instance, error) {
	var inst models.Instance
	err := row.Scan(&inst.ID, &inst.UserID, &inst.Name, &inst.APIURL, &inst.APIKey, &inst.PhoneNumber,
		&inst.Status, &inst.IsPrimary, &inst.IsGlobal, &inst.MessagesSent, &inst.MessagesReceived,
		&inst.LastActivity, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func collectInstances(rows pgx.Rows) ([]models.Instance, error) {
	defer rows.Close()

	var instances []models.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return instances, nil
}

// GetPrimary returns the tenant's primary instance or nil. Global instances
// are never primary.
func (r *InstanceRepository) GetPrimary(ctx context.Context, tenantID uuid.UUID) (*models.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances
		WHERE user_id = $1 AND is_primary = TRUE AND is_global = FALSE
		LIMIT 1`

	inst, err := scanInstance(r.db.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get primary instance: %w", err)
	}
	return inst, nil
}

// ListConnectedSecondaries returns the tenant's connected non-primary
// instances in random order.
func (r *InstanceRepository) ListConnectedSecondaries(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances
		WHERE user_id = $1 AND is_primary = FALSE AND status = 'connected'
		ORDER BY random()`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query secondary instances: %w", err)
	}
	return collectInstances(rows)
}

// ListVisible returns the tenant's own instances plus global ones, primary first.
func (r *InstanceRepository) ListVisible(ctx context.Context, tenantID uuid.UUID) ([]models.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances
		WHERE user_id = $1 OR is_global = TRUE
		ORDER BY is_primary DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	return collectInstances(rows)
}

// ListAll is used by the connectivity monitor.
func (r *InstanceRepository) ListAll(ctx context.Context) ([]models.Instance, error) {
	rows, err := r.db.Query(ctx, `SELECT `+instanceColumns+` FROM instances ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	return collectInstances(rows)
}

func (r *InstanceRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances
		WHERE id = $1 AND (user_id = $2 OR is_global = TRUE)`

	inst, err := scanInstance(r.db.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return inst, nil
}

func (r *InstanceRepository) GetByName(ctx context.Context, name string) (*models.Instance, error) {
	inst, err := scanInstance(r.db.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("instance %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get instance by name: %w", err)
	}
	return inst, nil
}

// Create inserts an instance. Making it primary clears the tenant's other
// primaries in the same transaction.
func (r *InstanceRepository) Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateInstanceRequest) (*models.Instance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner *uuid.UUID
	if !req.IsGlobal {
		owner = &tenantID
	}

	if req.IsPrimary && !req.IsGlobal {
		if _, err := tx.Exec(ctx, `UPDATE instances SET is_primary = FALSE WHERE user_id = $1`, tenantID); err != nil {
			return nil, fmt.Errorf("failed to clear primary instances: %w", err)
		}
	}

	query := `INSERT INTO instances (user_id, name, api_url, api_key, phone_number, status, is_primary, is_global)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), 'disconnected', $6, $7)
		RETURNING ` + instanceColumns

	inst, err := scanInstance(tx.QueryRow(ctx, query, owner, req.Name, req.APIURL, req.APIKey,
		req.PhoneNumber, req.IsPrimary && !req.IsGlobal, req.IsGlobal))
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit instance: %w", err)
	}

	r.logger.Info("Instance created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("instance", inst.Name),
		zap.Bool("primary", inst.IsPrimary),
		zap.Bool("global", inst.IsGlobal))
	return inst, nil
}

func (r *InstanceRepository) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.UpdateInstanceRequest) (*models.Instance, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if req.IsPrimary != nil && *req.IsPrimary {
		if _, err := tx.Exec(ctx, `UPDATE instances SET is_primary = FALSE WHERE user_id = $1 AND id != $2`, tenantID, id); err != nil {
			return nil, fmt.Errorf("failed to clear primary instances: %w", err)
		}
	}

	var status *string
	if req.Status != nil {
		s := string(*req.Status)
		status = &s
	}

	query := `UPDATE instances
		SET name = COALESCE($1, name),
			api_url = COALESCE($2, api_url),
			api_key = COALESCE($3, api_key),
			phone_number = COALESCE($4, phone_number),
			status = COALESCE($5, status),
			is_primary = COALESCE($6, is_primary),
			updated_at = NOW()
		WHERE id = $7 AND user_id = $8
		RETURNING ` + instanceColumns

	inst, err := scanInstance(tx.QueryRow(ctx, query, req.Name, req.APIURL, req.APIKey, req.PhoneNumber,
		status, req.IsPrimary, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update instance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit instance update: %w", err)
	}
	return inst, nil
}

// Delete removes a tenant-owned instance. Global instances are removed with
// tenantID == uuid.Nil by an admin.
func (r *InstanceRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	var (
		result pgconn.CommandTag
		err    error
	)
	if tenantID == uuid.Nil {
		result, err = r.db.Exec(ctx, `DELETE FROM instances WHERE id = $1 AND is_global = TRUE`, id)
	} else {
		result, err = r.db.Exec(ctx, `DELETE FROM instances WHERE id = $1 AND user_id = $2`, id, tenantID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *InstanceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InstanceStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE instances SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update instance status: %w", err)
	}
	return nil
}

// IncrementSent bumps messages_sent in place so concurrent writers never
// lose an update.
func (r *InstanceRepository) IncrementSent(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "messages_sent")
}

// IncrementReceived bumps messages_received in place; also called by the
// inbound webhook path.
func (r *InstanceRepository) IncrementReceived(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "messages_received")
}

func (r *InstanceRepository) increment(ctx context.Context, id uuid.UUID, column string) error {
	query := fmt.Sprintf(`UPDATE instances
		SET %[1]s = %[1]s + 1, last_activity = NOW(), updated_at = NOW()
		WHERE id = $1`, column)

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}
