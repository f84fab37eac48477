package repository

import (
	"context"
	"time"

	"trend-processor/domain"
	"trend-processor/driver"
)

// BatchRepository handles pipeline batch persistence.
type BatchRepository interface {
	CreateBatch(ctx context.Context, ownerID, businessDescription string, queryCount int) (*domain.TrendBatch, error)
	// GetBatch retrieves a batch. A non-empty ownerID restricts the lookup
	// to that owner's rows; internal callers pass "" to read unscoped.
	GetBatch(ctx context.Context, batchID, ownerID string) (*domain.TrendBatch, error)
	UpdateBatchStage(ctx context.Context, batchID string, stage domain.BatchStage) error
}

// QueryRepository handles generated search query persistence.
type QueryRepository interface {
	CreateQueries(ctx context.Context, batchID, ownerID string, texts []string) ([]*domain.Query, error)
	FindByID(ctx context.Context, queryID string) (*domain.Query, error)
	FindByBatch(ctx context.Context, batchID string) ([]*domain.Query, error)
}

// VideoRepository handles scraped video persistence and analysis state.
type VideoRepository interface {
	CreateVideos(ctx context.Context, videos []*domain.Video) error
	// FindByID retrieves a video. A non-empty ownerID restricts the lookup
	// to that owner's rows; internal callers pass "" to read unscoped.
	FindByID(ctx context.Context, videoID, ownerID string) (*domain.Video, error)
	FindByBatch(ctx context.Context, batchID string) ([]*domain.Video, error)
	FindCompletedByBatch(ctx context.Context, batchID string) ([]*domain.Video, error)
	UpdateAnalysis(ctx context.Context, videoID string, status domain.AnalysisStatus, description string, errorMessage string) error
	FindStale(ctx context.Context, dispatchedBefore time.Time, limit int) ([]*domain.Video, error)
	FindPendingOlderThan(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Video, error)
	CountNonTerminalByBatch(ctx context.Context, batchID string) (int, error)
}

// RecommendationRepository handles recommendation persistence.
type RecommendationRepository interface {
	Create(ctx context.Context, rec *domain.Recommendation) error
	FindByBatch(ctx context.Context, batchID string) (*domain.Recommendation, error)
}

// ScraperAPIRepository wraps the keyword video search vendor.
type ScraperAPIRepository interface {
	SearchVideos(ctx context.Context, keywords string) ([]driver.VideoSearchResult, error)
}

// LLMAPIRepository wraps the chat-completions vendor.
type LLMAPIRepository interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	DescribeMedia(ctx context.Context, prompt, mediaURL string) (string, error)
}
