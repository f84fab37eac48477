package repository

import (
	"context"
	"fmt"
	"log/slog"

	"trend-processor/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recommendationRepository implementation.
type recommendationRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewRecommendationRepository creates a new recommendation repository.
func NewRecommendationRepository(db *pgxpool.Pool, logger *slog.Logger) RecommendationRepository {
	return &recommendationRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a synthesized recommendation. Recommendations are
// immutable, so this is insert-only.
func (r *recommendationRepository) Create(ctx context.Context, rec *domain.Recommendation) error {
	if rec == nil {
		return fmt.Errorf("recommendation cannot be nil")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("database connection is nil")
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO trend_recommendations (owner_id, batch_id, video_ids, summary_text, degraded)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.OwnerID, rec.BatchID, rec.VideoIDs, rec.SummaryText, rec.Degraded).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert recommendation", "error", err, "batch_id", rec.BatchID)
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}

	r.logger.InfoContext(ctx, "recommendation created",
		"recommendation_id", rec.ID, "batch_id", rec.BatchID, "degraded", rec.Degraded)
	return nil
}

// FindByBatch retrieves the recommendation synthesized for a batch.
func (r *recommendationRepository) FindByBatch(ctx context.Context, batchID string) (*domain.Recommendation, error) {
	if batchID == "" {
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	var rec domain.Recommendation
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_id, batch_id, video_ids, summary_text, degraded, created_at
		FROM trend_recommendations
		WHERE batch_id = $1
	`, batchID).Scan(&rec.ID, &rec.OwnerID, &rec.BatchID, &rec.VideoIDs, &rec.SummaryText, &rec.Degraded, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: batch %s", domain.ErrRecommendationNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}

	return &rec, nil
}
