package repository

import (
	"context"
	"fmt"
	"log/slog"

	"trend-processor/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// batchRepository implementation.
type batchRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewBatchRepository creates a new batch repository.
func NewBatchRepository(db *pgxpool.Pool, logger *slog.Logger) BatchRepository {
	return &batchRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts a new pipeline batch in the generating stage.
func (r *batchRepository) CreateBatch(ctx context.Context, ownerID, businessDescription string, queryCount int) (*domain.TrendBatch, error) {
	if ownerID == "" {
		r.logger.ErrorContext(ctx, "owner ID cannot be empty")
		return nil, fmt.Errorf("owner ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO trend_batches (owner_id, business_description, stage, query_count)
		VALUES ($1, $2, 'generating', $3)
		RETURNING batch_id, created_at, updated_at
	`

	batch := &domain.TrendBatch{
		OwnerID:             ownerID,
		BusinessDescription: businessDescription,
		Stage:               domain.BatchStageGenerating,
		QueryCount:          queryCount,
	}

	err := r.db.QueryRow(ctx, query, ownerID, businessDescription, queryCount).
		Scan(&batch.BatchID, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create batch", "error", err, "owner_id", ownerID)
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	r.logger.InfoContext(ctx, "batch created", "batch_id", batch.BatchID, "owner_id", ownerID)
	return batch, nil
}

// GetBatch retrieves a batch by ID, scoped to an owner when one is given.
// A batch that exists but belongs to another owner reads as not found.
func (r *batchRepository) GetBatch(ctx context.Context, batchID, ownerID string) (*domain.TrendBatch, error) {
	if batchID == "" {
		r.logger.ErrorContext(ctx, "batch ID cannot be empty")
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT batch_id, owner_id, business_description, stage, query_count, created_at, updated_at
		FROM trend_batches
		WHERE batch_id = $1
	`
	args := []interface{}{batchID}
	if ownerID != "" {
		query += ` AND owner_id = $2`
		args = append(args, ownerID)
	}

	var batch domain.TrendBatch
	var batchUUID uuid.UUID
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&batchUUID,
		&batch.OwnerID,
		&batch.BusinessDescription,
		&batch.Stage,
		&batch.QueryCount,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batchID)
		}
		r.logger.ErrorContext(ctx, "failed to get batch", "error", err, "batch_id", batchID)
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	batch.BatchID = batchUUID
	return &batch, nil
}

// UpdateBatchStage advances the durable cursor of a batch.
func (r *batchRepository) UpdateBatchStage(ctx context.Context, batchID string, stage domain.BatchStage) error {
	if batchID == "" {
		r.logger.ErrorContext(ctx, "batch ID cannot be empty")
		return fmt.Errorf("batch ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("database connection is nil")
	}

	query := `
		UPDATE trend_batches
		SET stage = $1, updated_at = NOW()
		WHERE batch_id = $2
	`

	result, err := r.db.Exec(ctx, query, string(stage), batchID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update batch stage", "error", err, "batch_id", batchID)
		return fmt.Errorf("failed to update batch stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batchID)
	}

	r.logger.InfoContext(ctx, "batch stage updated", "batch_id", batchID, "stage", stage)
	return nil
}
