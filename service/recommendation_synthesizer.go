package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/repository"

	"github.com/google/uuid"
)

// RecommendationSynthesizerService implementation.
type recommendationSynthesizerService struct {
	batchRepo repository.BatchRepository
	videoRepo repository.VideoRepository
	recRepo   repository.RecommendationRepository
	llmRepo   repository.LLMAPIRepository
	cfg       *config.Config
	logger    *slog.Logger
}

// NewRecommendationSynthesizerService creates a new recommendation synthesizer.
func NewRecommendationSynthesizerService(
	batchRepo repository.BatchRepository,
	videoRepo repository.VideoRepository,
	recRepo repository.RecommendationRepository,
	llmRepo repository.LLMAPIRepository,
	cfg *config.Config,
	logger *slog.Logger,
) RecommendationSynthesizerService {
	return &recommendationSynthesizerService{
		batchRepo: batchRepo,
		videoRepo: videoRepo,
		recRepo:   recRepo,
		llmRepo:   llmRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// Synthesize condenses a batch's completed analyses into one recommendation.
// If the text model fails, a degraded template summary is stored instead so
// the batch still terminates with a usable result.
func (s *recommendationSynthesizerService) Synthesize(ctx context.Context, batchID string) (*domain.Recommendation, error) {
	s.logger.InfoContext(ctx, "starting synthesis", "batch_id", batchID)

	batch, err := s.batchRepo.GetBatch(ctx, batchID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	videos, err := s.videoRepo.FindCompletedByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyzed videos: %w", err)
	}
	if len(videos) == 0 {
		if stageErr := s.batchRepo.UpdateBatchStage(ctx, batchID, domain.BatchStageFailed); stageErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark batch failed", "error", stageErr, "batch_id", batchID)
		}
		return nil, fmt.Errorf("%w: batch %s", domain.ErrNoAnalyzedVideos, batchID)
	}

	// Most-liked analyses carry the strongest trend signal; cap the prompt
	// so a large batch cannot blow the model's context.
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].Stats.Likes > videos[j].Stats.Likes
	})
	if len(videos) > s.cfg.Pipeline.SynthesisCap {
		videos = videos[:s.cfg.Pipeline.SynthesisCap]
	}

	rec := &domain.Recommendation{
		OwnerID:  batch.OwnerID,
		BatchID:  batch.BatchID,
		VideoIDs: videoIDs(videos),
	}

	summary, err := s.llmRepo.GenerateText(ctx, buildSynthesisPrompt(batch.BusinessDescription, videos))
	if err != nil {
		s.logger.ErrorContext(ctx, "synthesis model call failed, storing degraded summary",
			"error", err, "batch_id", batchID)
		rec.SummaryText = buildDegradedSummary(videos)
		rec.Degraded = true
	} else {
		rec.SummaryText = strings.TrimSpace(summary)
	}

	if err := s.recRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist recommendation: %w", err)
	}

	if err := s.batchRepo.UpdateBatchStage(ctx, batchID, domain.BatchStageCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete batch: %w", err)
	}

	s.logger.InfoContext(ctx, "synthesis completed",
		"batch_id", batchID, "videos", len(videos), "degraded", rec.Degraded)
	return rec, nil
}

func videoIDs(videos []*domain.Video) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids
}

func buildSynthesisPrompt(businessDescription string, videos []*domain.Video) string {
	var b strings.Builder
	b.WriteString("You are a short-form video strategist.\n\n")
	fmt.Fprintf(&b, "Business: %s\n\n", businessDescription)
	fmt.Fprintf(&b, "Below are analyses of %d trending videos relevant to this business. ", len(videos))
	b.WriteString("Synthesize them into one actionable recommendation with exactly these sections, in this order:\n")
	b.WriteString("## Trends\nThe common formats and hooks across the videos, and which fit this business best.\n")
	b.WriteString("## Content ideas\nThree concrete video ideas the owner could film this week.\n")
	b.WriteString("## Hashtags\nHashtags to use, drawn from the videos where possible.\n")
	b.WriteString("## Posting plan\nWhen and how often to post over the next two weeks.\n")

	for i, v := range videos {
		fmt.Fprintf(&b, "\n--- Video %d (views: %d, likes: %d) ---\n", i+1, v.Stats.Views, v.Stats.Likes)
		if v.Caption != "" {
			fmt.Fprintf(&b, "Caption: %s\n", v.Caption)
		}
		if v.Description != nil {
			b.WriteString(*v.Description)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// buildDegradedSummary is the no-model fallback: a plain digest of the top
// analyses so the batch still delivers something readable.
func buildDegradedSummary(videos []*domain.Video) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trend digest from %d analyzed videos (automatic fallback):\n", len(videos))
	for i, v := range videos {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n%d. (%d likes) ", i+1, v.Stats.Likes)
		if v.DisplaySummary != nil {
			b.WriteString(*v.DisplaySummary)
		} else if v.Description != nil {
			b.WriteString(domain.DisplaySummary(*v.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}
