package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/galihcitta/number-warming-service/internal/models"
)

// ErrTemplateLimit is returned when a tenant's pool is already full.
var ErrTemplateLimit = fmt.Errorf("message pool is limited to %d entries", models.MaxMessageTemplates)

type TemplateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTemplateRepository(db *pgxpool.Pool, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Random returns one uniformly chosen template or nil when the pool is empty.
func (r *TemplateRepository) Random(ctx context.Context, tenantID uuid.UUID) (*models.MessageTemplate, error) {
	query := `SELECT id, user_id, content, created_at FROM message_templates
		WHERE user_id = $1 ORDER BY random() LIMIT 1`

	var t models.MessageTemplate
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&t.ID, &t.UserID, &t.Content, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pick message template: %w", err)
	}
	return &t, nil
}

func (r *TemplateRepository) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM message_templates WHERE user_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count message templates: %w", err)
	}
	return n, nil
}

func (r *TemplateRepository) List(ctx context.Context, tenantID uuid.UUID) ([]models.MessageTemplate, error) {
	query := `SELECT id, user_id, content, created_at FROM message_templates
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, tenantID, models.MaxMessageTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to query message templates: %w", err)
	}
	defer rows.Close()

	var templates []models.MessageTemplate
	for rows.Next() {
		var t models.MessageTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return templates, nil
}

func (r *TemplateRepository) Create(ctx context.Context, tenantID uuid.UUID, content string) (*models.MessageTemplate, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	count, err := lockedTemplateCount(ctx, tx, tenantID)
	if err != nil {
		return nil, err
	}
	if count >= models.MaxMessageTemplates {
		return nil, ErrTemplateLimit
	}

	t := models.MessageTemplate{UserID: tenantID, Content: content}
	query := `INSERT INTO message_templates (user_id, content) VALUES ($1, $2) RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query, tenantID, content).Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create message template: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message template: %w", err)
	}
	return &t, nil
}

// lockedTemplateCount locks the tenant row so concurrent writers to the
// same pool serialize on the cap check, then counts the pool.
func lockedTemplateCount(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (int, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, tenantID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("tenant %s: %w", tenantID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock tenant: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM message_templates WHERE user_id = $1`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count message templates: %w", err)
	}
	return count, nil
}

// Import inserts trimmed non-empty contents up to the remaining capacity
// and returns how many rows were written.
func (r *TemplateRepository) Import(ctx context.Context, tenantID uuid.UUID, contents []string) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := lockedTemplateCount(ctx, tx, tenantID)
	if err != nil {
		return 0, err
	}

	room := models.MaxMessageTemplates - existing
	batch := &pgx.Batch{}
	for _, c := range contents {
		if batch.Len() >= room {
			break
		}
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		batch.Queue(`INSERT INTO message_templates (user_id, content) VALUES ($1, $2)`, tenantID, c)
	}

	inserted := batch.Len()
	if inserted == 0 {
		return 0, nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to import message templates: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit message import: %w", err)
	}

	r.logger.Info("Message templates imported",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("count", inserted))
	return inserted, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM message_templates WHERE id = $1 AND user_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete message template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("message template %s: %w", id, ErrNotFound)
	}
	return nil
}
