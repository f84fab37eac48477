package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/repository"
)

const drainLimit = 100

// PipelineService implementation. Each Run* method executes one stage
// synchronously and hands the next stage to the dispatcher, so the whole
// batch advances as a chain of short HTTP requests rather than one
// long-running worker.
type pipelineService struct {
	batchRepo      repository.BatchRepository
	videoRepo      repository.VideoRepository
	queryGen       QueryGeneratorService
	scraper        VideoScraperService
	analyzer       VideoAnalyzerService
	synthesizer    RecommendationSynthesizerService
	dispatcher     ChainDispatcherService
	analysisEvents AnalysisEventSink
	cfg            *config.Config
	logger         *slog.Logger
}

// NewPipelineService creates a new pipeline service.
func NewPipelineService(
	batchRepo repository.BatchRepository,
	videoRepo repository.VideoRepository,
	queryGen QueryGeneratorService,
	scraper VideoScraperService,
	analyzer VideoAnalyzerService,
	synthesizer RecommendationSynthesizerService,
	dispatcher ChainDispatcherService,
	analysisEvents AnalysisEventSink,
	cfg *config.Config,
	logger *slog.Logger,
) PipelineService {
	return &pipelineService{
		batchRepo:      batchRepo,
		videoRepo:      videoRepo,
		queryGen:       queryGen,
		scraper:        scraper,
		analyzer:       analyzer,
		synthesizer:    synthesizer,
		dispatcher:     dispatcher,
		analysisEvents: analysisEvents,
		cfg:            cfg,
		logger:         logger,
	}
}

// StartPipeline creates a batch and fires the first stage. It returns as
// soon as the batch row exists; callers poll for progress.
func (s *pipelineService) StartPipeline(ctx context.Context, ownerID, businessDescription string, queryCount int) (*domain.TrendBatch, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if strings.TrimSpace(businessDescription) == "" {
		return nil, domain.ErrMissingBusinessDescription
	}

	if queryCount <= 0 {
		queryCount = s.cfg.Pipeline.DefaultQueries
	}
	if queryCount > s.cfg.Pipeline.MaxQueries {
		s.logger.WarnContext(ctx, "query count above maximum, clamping",
			"requested", queryCount, "max", s.cfg.Pipeline.MaxQueries)
		queryCount = s.cfg.Pipeline.MaxQueries
	}

	batch, err := s.batchRepo.CreateBatch(ctx, ownerID, businessDescription, queryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	s.dispatcher.DispatchGeneration(batch.BatchID.String())

	s.logger.InfoContext(ctx, "pipeline started",
		"batch_id", batch.BatchID, "owner_id", ownerID, "query_count", queryCount)
	return batch, nil
}

// RunGeneration executes the query generation stage and chains into scraping
// with the generated query IDs as the chain's work items.
func (s *pipelineService) RunGeneration(ctx context.Context, batchID string) error {
	queries, err := s.queryGen.GenerateQueries(ctx, batchID)
	if err != nil {
		s.failBatch(ctx, batchID, err)
		return err
	}

	ids := make([]string, 0, len(queries))
	for _, q := range queries {
		ids = append(ids, q.ID.String())
	}

	s.dispatcher.DispatchScrape(batchID, ids)
	return nil
}

// RunScrape scrapes the head query of the chain, then hands the tail back to
// the dispatcher. One dead query never stops the chain; its failure is
// logged and the tail still dispatches. An empty chain means every query was
// scraped and the batch moves to analysis, or fails if nothing was kept.
func (s *pipelineService) RunScrape(ctx context.Context, batchID string, queryIDs []string) error {
	if len(queryIDs) == 0 {
		videos, err := s.videoRepo.FindByBatch(ctx, batchID)
		if err != nil {
			s.failBatch(ctx, batchID, err)
			return err
		}

		if len(videos) == 0 {
			err := fmt.Errorf("%w: batch %s scraped nothing", domain.ErrNoAnalyzedVideos, batchID)
			s.failBatch(ctx, batchID, err)
			return err
		}

		if err := s.batchRepo.UpdateBatchStage(ctx, batchID, domain.BatchStageAnalyzing); err != nil {
			s.failBatch(ctx, batchID, err)
			return err
		}

		var ids []string
		for _, v := range videos {
			if v.AnalysisStatus == domain.AnalysisStatusPending {
				ids = append(ids, v.ID.String())
			}
		}

		s.dispatcher.DispatchAnalysisChain(batchID, ids)
		s.mirrorAnalysisRequests(ctx, batchID, ids)
		return nil
	}

	head, tail := queryIDs[0], queryIDs[1:]
	if _, err := s.scraper.ScrapeQuery(ctx, head); err != nil {
		s.logger.ErrorContext(ctx, "scrape failed, chain continues",
			"error", err, "query_id", head, "batch_id", batchID, "remaining", len(tail))
	}

	s.dispatcher.DispatchScrape(batchID, tail)
	return nil
}

// RunAnalysisChain analyzes the head of the chain, then hands the tail back
// to the dispatcher. An empty chain is a completion check: the batch moves
// to synthesis only once it is still analyzing and no video is outstanding,
// so duplicate deliveries of the same hand-off cannot advance it twice. One
// broken video never stops the chain; its failure is recorded on the row
// and the tail still dispatches.
func (s *pipelineService) RunAnalysisChain(ctx context.Context, batchID string, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return s.completeAnalysis(ctx, batchID)
	}

	head, tail := videoIDs[0], videoIDs[1:]
	if err := s.analyzer.AnalyzeVideo(ctx, head); err != nil {
		s.logger.ErrorContext(ctx, "analysis failed, chain continues",
			"error", err, "video_id", head, "batch_id", batchID, "remaining", len(tail))
	}

	s.dispatcher.DispatchAnalysisChain(batchID, tail)
	return nil
}

func (s *pipelineService) completeAnalysis(ctx context.Context, batchID string) error {
	batch, err := s.batchRepo.GetBatch(ctx, batchID, "")
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if batch.Stage != domain.BatchStageAnalyzing {
		s.logger.InfoContext(ctx, "batch not analyzing, completion check skipped",
			"batch_id", batchID, "stage", batch.Stage)
		return nil
	}

	outstanding, err := s.videoRepo.CountNonTerminalByBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to count outstanding videos: %w", err)
	}
	if outstanding > 0 {
		s.logger.InfoContext(ctx, "videos still outstanding, batch stays analyzing",
			"batch_id", batchID, "outstanding", outstanding)
		return nil
	}

	if err := s.batchRepo.UpdateBatchStage(ctx, batchID, domain.BatchStageSynthesizing); err != nil {
		return fmt.Errorf("failed to advance batch stage: %w", err)
	}
	s.dispatcher.DispatchSynthesis(batchID)
	return nil
}

// mirrorAnalysisRequests copies the analysis hand-off onto the task queue.
// The HTTP chain stays the primary delivery path; the mirrored events let
// the consumer pick up work a dropped dispatch left behind. Publish
// failures are logged, not fatal.
func (s *pipelineService) mirrorAnalysisRequests(ctx context.Context, batchID string, videoIDs []string) {
	if s.analysisEvents == nil {
		return
	}
	for _, id := range videoIDs {
		if err := s.analysisEvents.PublishAnalysisRequested(ctx, batchID, id); err != nil {
			s.logger.WarnContext(ctx, "failed to mirror analysis request",
				"error", err, "video_id", id, "batch_id", batchID)
		}
	}
}

// DrainPending re-dispatches analysis for videos that have sat pending past
// the stuck budget, the safety net for a chain that died between scrape and
// analysis. Returns how many videos were re-dispatched.
func (s *pipelineService) DrainPending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.Pipeline.StuckAfter)

	videos, err := s.videoRepo.FindPendingOlderThan(ctx, cutoff, drainLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to find pending videos: %w", err)
	}
	if len(videos) == 0 {
		return 0, nil
	}

	byBatch := make(map[string][]string)
	for _, v := range videos {
		batchID := v.BatchID.String()
		byBatch[batchID] = append(byBatch[batchID], v.ID.String())
	}

	drained := 0
	for batchID, ids := range byBatch {
		s.dispatcher.DispatchAnalysisChain(batchID, ids)
		s.mirrorAnalysisRequests(ctx, batchID, ids)
		drained += len(ids)
		s.logger.InfoContext(ctx, "re-dispatched pending analyses",
			"batch_id", batchID, "count", len(ids))
	}
	return drained, nil
}

// RunSynthesis executes the final stage.
func (s *pipelineService) RunSynthesis(ctx context.Context, batchID string) error {
	if _, err := s.synthesizer.Synthesize(ctx, batchID); err != nil {
		// Synthesize marks the batch failed itself on the no-videos path;
		// other errors leave the stage untouched for a retry.
		return err
	}
	return nil
}

func (s *pipelineService) failBatch(ctx context.Context, batchID string, cause error) {
	s.logger.ErrorContext(ctx, "pipeline stage failed", "error", cause, "batch_id", batchID)
	if err := s.batchRepo.UpdateBatchStage(ctx, batchID, domain.BatchStageFailed); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark batch failed", "error", err, "batch_id", batchID)
	}
}
