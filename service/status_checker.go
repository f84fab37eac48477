package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/repository"
)

const staleSweepLimit = 100

// StatusCheckerService implementation.
type statusCheckerService struct {
	batchRepo repository.BatchRepository
	videoRepo repository.VideoRepository
	recRepo   repository.RecommendationRepository
	cfg       *config.Config
	logger    *slog.Logger
}

// NewStatusCheckerService creates a new status checker service.
func NewStatusCheckerService(
	batchRepo repository.BatchRepository,
	videoRepo repository.VideoRepository,
	recRepo repository.RecommendationRepository,
	cfg *config.Config,
	logger *slog.Logger,
) StatusCheckerService {
	return &statusCheckerService{
		batchRepo: batchRepo,
		videoRepo: videoRepo,
		recRepo:   recRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// CheckVideo returns the video's current analysis state. A video that has
// sat in processing past the stuck budget is rewritten to failed on this
// read, so a dead dispatch can never strand a poller forever.
func (s *statusCheckerService) CheckVideo(ctx context.Context, videoID, ownerID string) (*domain.Video, error) {
	video, err := s.videoRepo.FindByID(ctx, videoID, ownerID)
	if err != nil {
		return nil, err
	}

	if !s.isStuck(video) {
		return video, nil
	}

	s.logger.WarnContext(ctx, "rewriting stuck analysis",
		"video_id", videoID, "dispatched_at", video.DispatchedAt, "budget", s.cfg.Pipeline.StuckAfter)

	if err := s.rewriteStuck(ctx, video); err != nil {
		return nil, err
	}

	return s.videoRepo.FindByID(ctx, videoID, ownerID)
}

// CheckBatch aggregates the batch view. The recommendation is attached once
// it exists; its absence before completion is not an error.
func (s *statusCheckerService) CheckBatch(ctx context.Context, batchID, ownerID string) (*BatchStatus, error) {
	batch, err := s.batchRepo.GetBatch(ctx, batchID, ownerID)
	if err != nil {
		return nil, err
	}

	videos, err := s.videoRepo.FindByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	pending := 0
	for _, v := range videos {
		if !v.IsTerminal() {
			pending++
		}
	}

	status := &BatchStatus{
		Batch:         batch,
		Videos:        videos,
		PendingVideos: pending,
	}

	rec, err := s.recRepo.FindByBatch(ctx, batchID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecommendationNotFound) {
			return nil, err
		}
	} else {
		status.Recommendation = rec
	}

	return status, nil
}

// SweepStale rewrites every stuck video, not just the ones someone polls.
// Runs periodically from the scheduler as a safety net behind the lazy
// per-read rewrite.
func (s *statusCheckerService) SweepStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.Pipeline.StuckAfter)

	videos, err := s.videoRepo.FindStale(ctx, cutoff, staleSweepLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale videos: %w", err)
	}

	swept := 0
	for _, video := range videos {
		if err := s.rewriteStuck(ctx, video); err != nil {
			s.logger.ErrorContext(ctx, "failed to rewrite stale video", "error", err, "video_id", video.ID)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.InfoContext(ctx, "stale analyses swept", "count", swept)
	}
	return swept, nil
}

func (s *statusCheckerService) isStuck(video *domain.Video) bool {
	if video.AnalysisStatus != domain.AnalysisStatusProcessing || video.DispatchedAt == nil {
		return false
	}
	return time.Since(*video.DispatchedAt) > s.cfg.Pipeline.StuckAfter
}

func (s *statusCheckerService) rewriteStuck(ctx context.Context, video *domain.Video) error {
	return s.videoRepo.UpdateAnalysis(ctx, video.ID.String(), domain.AnalysisStatusFailed,
		"", "analysis took too long and was terminated")
}
