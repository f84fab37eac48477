package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"trend-processor/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const videoColumns = `
	id, query_id, batch_id, owner_id, source_url, download_url, caption,
	views, likes, hashtags, analysis_status, description, display_summary,
	error_message, retry_count, max_retries, dispatched_at, last_described_at, created_at
`

// videoRepository implementation.
type videoRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewVideoRepository creates a new video repository.
func NewVideoRepository(db *pgxpool.Pool, logger *slog.Logger) VideoRepository {
	return &videoRepository{
		db:     db,
		logger: logger,
	}
}

// CreateVideos inserts scraped videos in one transaction, preserving input order.
func (r *videoRepository) CreateVideos(ctx context.Context, videos []*domain.Video) error {
	if len(videos) == 0 {
		return nil
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("database connection is nil")
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO trend_videos (
			query_id, batch_id, owner_id, source_url, download_url, caption,
			views, likes, hashtags, analysis_status, max_retries
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10)
		RETURNING id, created_at
	`

	for _, v := range videos {
		err := tx.QueryRow(ctx, query,
			v.QueryID, v.BatchID, v.OwnerID, v.SourceURL, v.DownloadURL, v.Caption,
			v.Stats.Views, v.Stats.Likes, v.Hashtags, v.MaxRetries,
		).Scan(&v.ID, &v.CreatedAt)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to insert video", "error", err, "query_id", v.QueryID)
			return fmt.Errorf("failed to insert video: %w", err)
		}
		v.AnalysisStatus = domain.AnalysisStatusPending
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "videos created", "count", len(videos), "batch_id", videos[0].BatchID)
	return nil
}

// FindByID retrieves a video by ID, scoped to an owner when one is given.
// A video that exists but belongs to another owner reads as not found.
func (r *videoRepository) FindByID(ctx context.Context, videoID, ownerID string) (*domain.Video, error) {
	if videoID == "" {
		r.logger.ErrorContext(ctx, "video ID cannot be empty")
		return nil, fmt.Errorf("video ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `SELECT ` + videoColumns + ` FROM trend_videos WHERE id = $1`
	args := []interface{}{videoID}
	if ownerID != "" {
		query += ` AND owner_id = $2`
		args = append(args, ownerID)
	}

	row := r.db.QueryRow(ctx, query, args...)

	video, err := scanVideo(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", domain.ErrVideoNotFound, videoID)
		}
		r.logger.ErrorContext(ctx, "failed to get video", "error", err, "video_id", videoID)
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// FindByBatch returns every video in a batch, newest scrape order preserved.
func (r *videoRepository) FindByBatch(ctx context.Context, batchID string) ([]*domain.Video, error) {
	return r.findWhere(ctx, `batch_id = $1`, batchID)
}

// FindCompletedByBatch returns only terminal-success videos for synthesis.
func (r *videoRepository) FindCompletedByBatch(ctx context.Context, batchID string) ([]*domain.Video, error) {
	return r.findWhere(ctx, `batch_id = $1 AND analysis_status = 'completed'`, batchID)
}

func (r *videoRepository) findWhere(ctx context.Context, where string, args ...interface{}) ([]*domain.Video, error) {
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `SELECT ` + videoColumns + ` FROM trend_videos WHERE ` + where + ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find videos: %w", err)
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video rows: %w", err)
	}

	return videos, nil
}

// UpdateAnalysis moves a video through its analysis lifecycle. The legacy
// sentinel and error-prefixed description strings are written here so the
// tri-state invariant on the description column lives in exactly one place.
func (r *videoRepository) UpdateAnalysis(ctx context.Context, videoID string, status domain.AnalysisStatus, description string, errorMessage string) error {
	if videoID == "" {
		r.logger.ErrorContext(ctx, "video ID cannot be empty")
		return fmt.Errorf("video ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return fmt.Errorf("database connection is nil")
	}

	r.logger.InfoContext(ctx, "updating video analysis", "video_id", videoID, "status", status)

	now := time.Now()
	var query string
	var args []interface{}

	switch status {
	case domain.AnalysisStatusProcessing:
		query = `
			UPDATE trend_videos
			SET analysis_status = $1, description = $2, dispatched_at = $3
			WHERE id = $4
		`
		args = []interface{}{string(status), domain.AnalysisInProgressSentinel, now, videoID}
	case domain.AnalysisStatusCompleted:
		query = `
			UPDATE trend_videos
			SET analysis_status = $1, description = $2, display_summary = $3,
			    error_message = NULL, last_described_at = $4
			WHERE id = $5
		`
		args = []interface{}{string(status), description, domain.DisplaySummary(description), now, videoID}
	case domain.AnalysisStatusFailed:
		query = `
			UPDATE trend_videos
			SET analysis_status = $1, description = $2, error_message = $3,
			    retry_count = retry_count + 1, last_described_at = $4
			WHERE id = $5
		`
		args = []interface{}{string(status), domain.AnalysisErrorPrefix + errorMessage, errorMessage, now, videoID}
	default:
		query = `
			UPDATE trend_videos
			SET analysis_status = $1
			WHERE id = $2
		`
		args = []interface{}{string(status), videoID}
	}

	// Read Committed so status checks immediately after the update see it.
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}
		r.logger.ErrorContext(ctx, "failed to update video analysis", "error", err, "video_id", videoID)
		return fmt.Errorf("failed to update video analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}
		return fmt.Errorf("%w: %s", domain.ErrVideoNotFound, videoID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindStale returns videos stuck in processing since before the cutoff.
func (r *videoRepository) FindStale(ctx context.Context, dispatchedBefore time.Time, limit int) ([]*domain.Video, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `SELECT ` + videoColumns + `
		FROM trend_videos
		WHERE analysis_status = 'processing' AND dispatched_at < $1
		ORDER BY dispatched_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, dispatchedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale videos: %w", err)
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video rows: %w", err)
	}

	return videos, nil
}

// FindPendingOlderThan returns videos still pending since before the cutoff.
// These are scraped videos whose analysis hand-off never arrived.
func (r *videoRepository) FindPendingOlderThan(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Video, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `SELECT ` + videoColumns + `
		FROM trend_videos
		WHERE analysis_status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending videos: %w", err)
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending video rows: %w", err)
	}
	return videos, nil
}

// CountNonTerminalByBatch counts videos that have not reached a terminal state.
func (r *videoRepository) CountNonTerminalByBatch(ctx context.Context, batchID string) (int, error) {
	if batchID == "" {
		return 0, fmt.Errorf("batch ID cannot be empty")
	}
	if r.db == nil {
		r.logger.ErrorContext(ctx, "database connection is nil")
		return 0, fmt.Errorf("database connection is nil")
	}

	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM trend_videos
		WHERE batch_id = $1 AND analysis_status NOT IN ('completed', 'failed')
	`, batchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count non-terminal videos: %w", err)
	}

	return count, nil
}

// scanVideo reads one video row from either a pgx.Row or pgx.Rows.
func scanVideo(row pgx.Row) (*domain.Video, error) {
	var v domain.Video
	var description, displaySummary, errorMessage sql.NullString

	err := row.Scan(
		&v.ID,
		&v.QueryID,
		&v.BatchID,
		&v.OwnerID,
		&v.SourceURL,
		&v.DownloadURL,
		&v.Caption,
		&v.Stats.Views,
		&v.Stats.Likes,
		&v.Hashtags,
		&v.AnalysisStatus,
		&description,
		&displaySummary,
		&errorMessage,
		&v.RetryCount,
		&v.MaxRetries,
		&v.DispatchedAt,
		&v.LastDescribedAt,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		v.Description = &description.String
	}
	if displaySummary.Valid {
		v.DisplaySummary = &displaySummary.String
	}
	if errorMessage.Valid {
		v.ErrorMessage = &errorMessage.String
	}

	return &v, nil
}
