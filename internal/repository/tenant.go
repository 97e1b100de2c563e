package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

type TenantRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTenantRepository(db *pgxpool.Pool, logger *zap.Logger) *TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at`

	row := r.db.QueryRow(ctx, query, tenant.ID, tenant.Name)

	if err := row.Scan(&tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		r.logger.Error("Failed to create tenant", zap.Error(err), zap.String("name", tenant.Name))
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	r.logger.Info("Tenant created successfully", zap.String("id", tenant.ID.String()), zap.String("name", tenant.Name))
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT id, name, created_at, updated_at FROM tenants WHERE id = $1`

	var tenant models.Tenant
	err := r.db.QueryRow(ctx, query, id).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &tenant, nil
}

func (r *TenantRepository) GetAll(ctx context.Context) ([]models.Tenant, error) {
	query := `SELECT id, name, created_at, updated_at FROM tenants ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var tenant models.Tenant
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

// Delete removes the tenant; owned rows go with it through ON DELETE CASCADE.
func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", id, ErrNotFound)
	}

	r.logger.Info("Tenant deleted successfully", zap.String("id", id.String()))
	return nil
}
