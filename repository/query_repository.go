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

// queryRepository implementation.
type queryRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewQueryRepository creates a new query repository.
func NewQueryRepository(db *pgxpool.Pool, logger *slog.Logger) QueryRepository {
	return &queryRepository{
		db:     db,
		logger: logger,
	}
}

// CreateQueries inserts the generated search phrases for a batch in one
// transaction. All-or-nothing: a partial query set is never persisted.
func (r *queryRepository) CreateQueries(ctx context.Context, batchID, ownerID string, texts []string) ([]*domain.Query, error) {
	if batchID == "" {
		r.logger.ErrorContext(ctx, "batch ID cannot be empty")
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if ownerID == "" {
		r.logger.ErrorContext(ctx, "owner ID cannot be empty")
		return nil, fmt.Errorf("owner ID cannot be empty")
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("query texts cannot be empty")
	}
	batchUUID, err := uuid.Parse(batchID)
	if err != nil {
		r.logger.ErrorContext(ctx, "invalid batch ID", "error", err, "batch_id", batchID)
		return nil, fmt.Errorf("invalid batch ID %q: %w", batchID, err)
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO trend_queries (batch_id, owner_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	queries := make([]*domain.Query, 0, len(texts))
	for _, text := range texts {
		q := &domain.Query{
			BatchID: batchUUID,
			OwnerID: ownerID,
			Text:    text,
		}
		if err := tx.QueryRow(ctx, query, batchID, ownerID, text).Scan(&q.ID, &q.CreatedAt); err != nil {
			r.logger.ErrorContext(ctx, "failed to insert query", "error", err, "batch_id", batchID)
			return nil, fmt.Errorf("failed to insert query: %w", err)
		}
		queries = append(queries, q)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "queries created", "batch_id", batchID, "count", len(queries))
	return queries, nil
}

// FindByID retrieves a single stored query.
func (r *queryRepository) FindByID(ctx context.Context, queryID string) (*domain.Query, error) {
	if queryID == "" {
		r.logger.ErrorContext(ctx, "query ID cannot be empty")
		return nil, fmt.Errorf("query ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	row := r.db.QueryRow(ctx, `
		SELECT id, batch_id, owner_id, text, created_at
		FROM trend_queries
		WHERE id = $1
	`, queryID)

	var q domain.Query
	if err := row.Scan(&q.ID, &q.BatchID, &q.OwnerID, &q.Text, &q.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", domain.ErrQueryNotFound, queryID)
		}
		r.logger.ErrorContext(ctx, "failed to get query", "error", err, "query_id", queryID)
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	return &q, nil
}

// FindByBatch returns a batch's queries in creation order.
func (r *queryRepository) FindByBatch(ctx context.Context, batchID string) ([]*domain.Query, error) {
	if batchID == "" {
		r.logger.ErrorContext(ctx, "batch ID cannot be empty")
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT id, batch_id, owner_id, text, created_at
		FROM trend_queries
		WHERE batch_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to find queries: %w", err)
	}
	defer rows.Close()

	var queries []*domain.Query
	for rows.Next() {
		var q domain.Query
		if err := rows.Scan(&q.ID, &q.BatchID, &q.OwnerID, &q.Text, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query row: %w", err)
		}
		queries = append(queries, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query rows: %w", err)
	}

	return queries, nil
}
