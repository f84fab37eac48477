package service

import (
	"context"

	"trend-processor/domain"
)

// PipelineService coordinates the four pipeline stages for a batch.
type PipelineService interface {
	StartPipeline(ctx context.Context, ownerID, businessDescription string, queryCount int) (*domain.TrendBatch, error)
	RunGeneration(ctx context.Context, batchID string) error
	RunScrape(ctx context.Context, batchID string, queryIDs []string) error
	RunAnalysisChain(ctx context.Context, batchID string, videoIDs []string) error
	RunSynthesis(ctx context.Context, batchID string) error
	DrainPending(ctx context.Context) (int, error)
}

// AnalysisEventSink mirrors analysis hand-offs onto the task queue so a
// dropped HTTP dispatch can be picked up again.
type AnalysisEventSink interface {
	PublishAnalysisRequested(ctx context.Context, batchID, videoID string) error
}

// QueryGeneratorService turns a business description into search queries.
type QueryGeneratorService interface {
	GenerateQueries(ctx context.Context, batchID string) ([]*domain.Query, error)
}

// VideoScraperService runs one stored query against the search vendor and
// persists the playable results.
type VideoScraperService interface {
	ScrapeQuery(ctx context.Context, queryID string) (*ScrapeResult, error)
}

// VideoAnalyzerService describes a single video with the vision model.
type VideoAnalyzerService interface {
	AnalyzeVideo(ctx context.Context, videoID string) error
}

// RecommendationSynthesizerService condenses analyzed videos into one narrative.
type RecommendationSynthesizerService interface {
	Synthesize(ctx context.Context, batchID string) (*domain.Recommendation, error)
}

// ChainDispatcherService fires un-awaited self-calls that keep a batch moving.
type ChainDispatcherService interface {
	DispatchGeneration(batchID string)
	DispatchScrape(batchID string, queryIDs []string)
	DispatchAnalysisChain(batchID string, videoIDs []string)
	DispatchSynthesis(batchID string)
}

// StatusCheckerService reads pipeline state, rewriting stuck entries on read.
// Reads are scoped to ownerID; "" reads unscoped for internal callers.
type StatusCheckerService interface {
	CheckVideo(ctx context.Context, videoID, ownerID string) (*domain.Video, error)
	CheckBatch(ctx context.Context, batchID, ownerID string) (*BatchStatus, error)
	SweepStale(ctx context.Context) (int, error)
}

// StatusPollerService blocks until a video analysis reaches a terminal state
// or the wall budget runs out.
type StatusPollerService interface {
	WaitForVideo(ctx context.Context, videoID, ownerID string) (*domain.Video, error)
}

// ScrapeResult represents the outcome of scraping one query.
type ScrapeResult struct {
	VideoCount   int
	SkippedCount int
}

// BatchStatus is the aggregate view of one batch returned to pollers.
type BatchStatus struct {
	Batch          *domain.TrendBatch     `json:"batch"`
	Videos         []*domain.Video        `json:"videos"`
	PendingVideos  int                    `json:"pending_videos"`
	Recommendation *domain.Recommendation `json:"recommendation,omitempty"`
}
