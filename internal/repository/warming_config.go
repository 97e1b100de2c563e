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

// ErrInvalidConfig is returned when a merged update breaks min <= max.
var ErrInvalidConfig = errors.New("minDelaySeconds must not exceed maxDelaySeconds")

type WarmingConfigRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewWarmingConfigRepository(db *pgxpool.Pool, logger *zap.Logger) *WarmingConfigRepository {
	return &WarmingConfigRepository{
		db:     db,
		logger: logger,
	}
}

const warmingConfigColumns = `min_delay_seconds, max_delay_seconds, messages_per_hour,
	active_hours_start, active_hours_end, receive_ratio`

func scanWarmingConfig(row pgx.Row) (*models.WarmingConfig, error) {
	var cfg models.WarmingConfig
	err := row.Scan(&cfg.MinDelaySeconds, &cfg.MaxDelaySeconds, &cfg.MessagesPerHour,
		&cfg.ActiveHoursStart, &cfg.ActiveHoursEnd, &cfg.ReceiveRatio)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfig returns the stored config, or the defaults when the tenant has
// never saved one. It never writes.
func (r *WarmingConfigRepository) GetConfig(ctx context.Context, tenantID uuid.UUID) (*models.WarmingConfig, error) {
	query := `SELECT ` + warmingConfigColumns + ` FROM warming_config WHERE user_id = $1`

	cfg, err := scanWarmingConfig(r.db.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultWarmingConfig(), nil
		}
		return nil, fmt.Errorf("failed to get warming config: %w", err)
	}
	return cfg, nil
}

// GetOrCreate lazily persists the defaults for the CRUD read path.
func (r *WarmingConfigRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*models.WarmingConfig, error) {
	def := models.DefaultWarmingConfig()
	query := `INSERT INTO warming_config (user_id, ` + warmingConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, tenantID, def.MinDelaySeconds, def.MaxDelaySeconds, def.MessagesPerHour,
		def.ActiveHoursStart, def.ActiveHoursEnd, def.ReceiveRatio); err != nil {
		return nil, fmt.Errorf("failed to create default warming config: %w", err)
	}
	return r.GetConfig(ctx, tenantID)
}

// Upsert applies a partial update on top of the current (or default) config.
func (r *WarmingConfigRepository) Upsert(ctx context.Context, tenantID uuid.UUID, req *models.UpdateWarmingConfigRequest) (*models.WarmingConfig, error) {
	current, err := r.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	merged := req.Apply(*current)
	if merged.MinDelaySeconds > merged.MaxDelaySeconds {
		return nil, ErrInvalidConfig
	}

	query := `INSERT INTO warming_config (user_id, ` + warmingConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			min_delay_seconds = EXCLUDED.min_delay_seconds,
			max_delay_seconds = EXCLUDED.max_delay_seconds,
			messages_per_hour = EXCLUDED.messages_per_hour,
			active_hours_start = EXCLUDED.active_hours_start,
			active_hours_end = EXCLUDED.active_hours_end,
			receive_ratio = EXCLUDED.receive_ratio,
			updated_at = NOW()
		RETURNING ` + warmingConfigColumns

	cfg, err := scanWarmingConfig(r.db.QueryRow(ctx, query, tenantID, merged.MinDelaySeconds, merged.MaxDelaySeconds,
		merged.MessagesPerHour, merged.ActiveHoursStart, merged.ActiveHoursEnd, merged.ReceiveRatio))
	if err != nil {
		return nil, fmt.Errorf("failed to save warming config: %w", err)
	}

	r.logger.Info("Warming config updated",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("min_delay", cfg.MinDelaySeconds),
		zap.Int("max_delay", cfg.MaxDelaySeconds),
		zap.Float64("receive_ratio", cfg.ReceiveRatio))
	return cfg, nil
}
