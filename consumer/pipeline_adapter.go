package consumer

import (
	"context"
	"log/slog"

	"trend-processor/service"
)

// PipelineServiceAdapter adapts the pipeline services to the queue's
// PipelineRunner interface.
type PipelineServiceAdapter struct {
	pipeline service.PipelineService
	analyzer service.VideoAnalyzerService
	logger   *slog.Logger
}

// NewPipelineServiceAdapter creates a new PipelineServiceAdapter.
func NewPipelineServiceAdapter(
	pipeline service.PipelineService,
	analyzer service.VideoAnalyzerService,
	logger *slog.Logger,
) *PipelineServiceAdapter {
	return &PipelineServiceAdapter{
		pipeline: pipeline,
		analyzer: analyzer,
		logger:   logger,
	}
}

// StartPipelineRun starts a batch for an owner from a queued request.
func (a *PipelineServiceAdapter) StartPipelineRun(ctx context.Context, ownerID, businessDescription string, queryCount int) error {
	batch, err := a.pipeline.StartPipeline(ctx, ownerID, businessDescription, queryCount)
	if err != nil {
		return err
	}

	a.logger.Info("pipeline started from queue",
		"batch_id", batch.BatchID,
		"owner_id", ownerID,
	)
	return nil
}

// AnalyzeVideo runs a single queued analysis task, then asks the pipeline
// whether the batch has settled. Queue tasks analyze one video each; the
// completion check is what moves a batch forward when the HTTP chain that
// would normally do so was lost.
func (a *PipelineServiceAdapter) AnalyzeVideo(ctx context.Context, videoID, batchID string) error {
	if err := a.analyzer.AnalyzeVideo(ctx, videoID); err != nil {
		return err
	}
	if batchID == "" {
		return nil
	}
	if err := a.pipeline.RunAnalysisChain(ctx, batchID, nil); err != nil {
		a.logger.Warn("batch completion check failed",
			"batch_id", batchID,
			"error", err,
		)
	}
	return nil
}

// AnalysisEventPublisher mirrors analysis hand-offs onto the task queue so a
// lost dispatch can be replayed by the consumer.
type AnalysisEventPublisher struct {
	publisher *Publisher
}

// NewAnalysisEventPublisher wraps a queue publisher as an analysis event sink.
func NewAnalysisEventPublisher(publisher *Publisher) *AnalysisEventPublisher {
	return &AnalysisEventPublisher{publisher: publisher}
}

// PublishAnalysisRequested appends one VideoAnalysisRequested event.
func (p *AnalysisEventPublisher) PublishAnalysisRequested(ctx context.Context, batchID, videoID string) error {
	return p.publisher.Publish(ctx, EventTypeAnalysisRequested, AnalysisRequestedPayload{
		VideoID: videoID,
		BatchID: batchID,
	})
}
