package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trend-processor/config"
	"trend-processor/domain"
)

// StatusPollerService implementation. Wraps the status checker in a
// fixed-interval loop with a wall budget, for callers that want to block on
// one video instead of polling themselves.
type statusPollerService struct {
	checker StatusCheckerService
	cfg     *config.Config
	logger  *slog.Logger
}

// NewStatusPollerService creates a new status poller service.
func NewStatusPollerService(checker StatusCheckerService, cfg *config.Config, logger *slog.Logger) StatusPollerService {
	return &statusPollerService{
		checker: checker,
		cfg:     cfg,
		logger:  logger,
	}
}

// WaitForVideo polls until the video reaches a terminal state. Four exits:
// completed, failed (both return the video), the wall budget runs out, or
// the caller's context is canceled. Transient read errors do not abort the
// wait; the budget bounds them.
func (s *statusPollerService) WaitForVideo(ctx context.Context, videoID, ownerID string) (*domain.Video, error) {
	deadline := time.Now().Add(s.cfg.Pipeline.PollBudget)

	ticker := time.NewTicker(s.cfg.Pipeline.PollInterval)
	defer ticker.Stop()

	var last *domain.Video
	for {
		video, err := s.checker.CheckVideo(ctx, videoID, ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			s.logger.WarnContext(ctx, "status check failed, will retry", "error", err, "video_id", videoID)
		} else {
			last = video
			if video.IsTerminal() {
				return video, nil
			}
		}

		if time.Now().After(deadline) {
			s.logger.WarnContext(ctx, "poll budget exhausted",
				"video_id", videoID, "budget", s.cfg.Pipeline.PollBudget)
			return last, fmt.Errorf("%w: video %s", domain.ErrPollBudgetExhausted, videoID)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
