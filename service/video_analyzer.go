package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/repository"
)

// VideoAnalyzerService implementation.
type videoAnalyzerService struct {
	videoRepo repository.VideoRepository
	llmRepo   repository.LLMAPIRepository
	cfg       *config.Config
	logger    *slog.Logger
}

// NewVideoAnalyzerService creates a new video analyzer service.
func NewVideoAnalyzerService(
	videoRepo repository.VideoRepository,
	llmRepo repository.LLMAPIRepository,
	cfg *config.Config,
	logger *slog.Logger,
) VideoAnalyzerService {
	return &videoAnalyzerService{
		videoRepo: videoRepo,
		llmRepo:   llmRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// AnalyzeVideo runs one vision pass over a video. The row is marked
// processing before the vendor call so a concurrent status read sees the
// in-progress state, then flipped to its terminal state afterwards. Every
// failure path lands in the failed state; the row never stays processing
// once this function returns.
func (s *videoAnalyzerService) AnalyzeVideo(ctx context.Context, videoID string) error {
	video, err := s.videoRepo.FindByID(ctx, videoID, "")
	if err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}

	if video.AnalysisStatus == domain.AnalysisStatusCompleted {
		s.logger.InfoContext(ctx, "video already analyzed, skipping", "video_id", videoID)
		return nil
	}
	if video.AnalysisStatus == domain.AnalysisStatusFailed && !video.CanRetry() {
		s.logger.InfoContext(ctx, "video exhausted retries, skipping",
			"video_id", videoID, "retry_count", video.RetryCount)
		return nil
	}

	if !video.HasPlayableURL() {
		return s.markFailed(ctx, videoID, domain.ErrNoPlayableURL)
	}

	if err := s.videoRepo.UpdateAnalysis(ctx, videoID, domain.AnalysisStatusProcessing, "", ""); err != nil {
		return fmt.Errorf("failed to mark video processing: %w", err)
	}

	s.logger.InfoContext(ctx, "analyzing video", "video_id", videoID, "media_url", video.BestMediaURL())

	description, err := s.llmRepo.DescribeMedia(ctx, buildAnalysisPrompt(video), video.BestMediaURL())
	if err != nil {
		s.logger.ErrorContext(ctx, "vision analysis failed", "error", err, "video_id", videoID)
		return s.markFailed(ctx, videoID, err)
	}

	description = strings.TrimSpace(description)
	if len([]rune(description)) < s.cfg.LLM.MinContentLength {
		s.logger.WarnContext(ctx, "analysis content too short",
			"video_id", videoID, "length", len([]rune(description)))
		return s.markFailed(ctx, videoID,
			fmt.Errorf("%w: got %d characters", domain.ErrAnalysisTooShort, len([]rune(description))))
	}

	if err := s.videoRepo.UpdateAnalysis(ctx, videoID, domain.AnalysisStatusCompleted, description, ""); err != nil {
		return fmt.Errorf("failed to store analysis: %w", err)
	}

	s.logger.InfoContext(ctx, "video analysis completed", "video_id", videoID)
	return nil
}

// markFailed records the terminal failure and returns the original cause so
// callers can classify it.
func (s *videoAnalyzerService) markFailed(ctx context.Context, videoID string, cause error) error {
	if updateErr := s.videoRepo.UpdateAnalysis(ctx, videoID, domain.AnalysisStatusFailed, "", cause.Error()); updateErr != nil {
		s.logger.ErrorContext(ctx, "failed to record analysis failure",
			"error", updateErr, "video_id", videoID)
		return fmt.Errorf("failed to record analysis failure: %w", updateErr)
	}
	return cause
}

func buildAnalysisPrompt(video *domain.Video) string {
	var b strings.Builder
	b.WriteString("Watch this short-form video and describe, in concrete detail:\n")
	b.WriteString("1. What happens on screen, scene by scene.\n")
	b.WriteString("2. The hook used in the first seconds.\n")
	b.WriteString("3. The editing style, pacing, and any text overlays.\n")
	b.WriteString("4. Why this format is engaging and how a small business could adapt it.\n")
	if video.Caption != "" {
		fmt.Fprintf(&b, "\nCreator caption: %s\n", video.Caption)
	}
	if len(video.Hashtags) > 0 {
		fmt.Fprintf(&b, "Hashtags: %s\n", strings.Join(video.Hashtags, " "))
	}
	return b.String()
}
