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

type ClientNumberRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewClientNumberRepository(db *pgxpool.Pool, logger *zap.Logger) *ClientNumberRepository {
	return &ClientNumberRepository{
		db:     db,
		logger: logger,
	}
}

// Random returns one uniformly chosen client number or nil when none exist.
func (r *ClientNumberRepository) Random(ctx context.Context, tenantID uuid.UUID) (*models.ClientNumber, error) {
	query := `SELECT id, user_id, phone_number, name, created_at FROM client_numbers
		WHERE user_id = $1 ORDER BY random() LIMIT 1`

	var c models.ClientNumber
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&c.ID, &c.UserID, &c.PhoneNumber, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pick client number: %w", err)
	}
	return &c, nil
}

func (r *ClientNumberRepository) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM client_numbers WHERE user_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count client numbers: %w", err)
	}
	return n, nil
}

func (r *ClientNumberRepository) List(ctx context.Context, tenantID uuid.UUID) ([]models.ClientNumber, error) {
	query := `SELECT id, user_id, phone_number, name, created_at FROM client_numbers
		WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query client numbers: %w", err)
	}
	defer rows.Close()

	var numbers []models.ClientNumber
	for rows.Next() {
		var c models.ClientNumber
		if err := rows.Scan(&c.ID, &c.UserID, &c.PhoneNumber, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client number: %w", err)
		}
		numbers = append(numbers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return numbers, nil
}

func (r *ClientNumberRepository) Create(ctx context.Context, tenantID uuid.UUID, req *models.CreateClientNumberRequest) (*models.ClientNumber, error) {
	c := models.ClientNumber{UserID: tenantID, PhoneNumber: strings.TrimSpace(req.PhoneNumber)}
	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = &name
	}

	query := `INSERT INTO client_numbers (user_id, phone_number, name) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, query, tenantID, c.PhoneNumber, c.Name).Scan(&c.ID, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create client number: %w", err)
	}
	return &c, nil
}

// Import bulk-inserts the non-blank numbers and returns how many were written.
func (r *ClientNumberRepository) Import(ctx context.Context, tenantID uuid.UUID, numbers []models.CreateClientNumberRequest) (int, error) {
	batch := &pgx.Batch{}
	for _, n := range numbers {
		phone := strings.TrimSpace(n.PhoneNumber)
		if phone == "" {
			continue
		}
		var name *string
		if trimmed := strings.TrimSpace(n.Name); trimmed != "" {
			name = &trimmed
		}
		batch.Queue(`INSERT INTO client_numbers (user_id, phone_number, name) VALUES ($1, $2, $3)`, tenantID, phone, name)
	}

	inserted := batch.Len()
	if inserted == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to import client numbers: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit client number import: %w", err)
	}

	r.logger.Info("Client numbers imported",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("count", inserted))
	return inserted, nil
}

func (r *ClientNumberRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM client_numbers WHERE id = $1 AND user_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete client number: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("client number %s: %w", id, ErrNotFound)
	}
	return nil
}
