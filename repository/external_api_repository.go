package repository

import (
	"context"
	"fmt"
	"log/slog"

	"trend-processor/config"
	"trend-processor/driver"
)

// scraperAPIRepository wraps the rate-limited scraper driver.
type scraperAPIRepository struct {
	client *driver.ScraperClient
	logger *slog.Logger
}

// NewScraperAPIRepository creates a new scraper API repository.
func NewScraperAPIRepository(cfg *config.Config, logger *slog.Logger) ScraperAPIRepository {
	return &scraperAPIRepository{
		client: driver.NewScraperClient(cfg, logger),
		logger: logger,
	}
}

// SearchVideos runs one keyword search against the vendor.
func (r *scraperAPIRepository) SearchVideos(ctx context.Context, keywords string) ([]driver.VideoSearchResult, error) {
	if keywords == "" {
		return nil, fmt.Errorf("keywords cannot be empty")
	}

	results, err := r.client.SearchVideos(ctx, keywords)
	if err != nil {
		r.logger.ErrorContext(ctx, "scraper search failed", "error", err, "keywords", keywords)
		return nil, fmt.Errorf("scraper search failed: %w", err)
	}

	r.logger.InfoContext(ctx, "scraper search completed", "keywords", keywords, "count", len(results))
	return results, nil
}

// llmAPIRepository wraps the chat-completions driver, pinning the text and
// vision models from config so services never pick models themselves.
type llmAPIRepository struct {
	client      *driver.LLMClient
	textModel   string
	visionModel string
	logger      *slog.Logger
}

// NewLLMAPIRepository creates a new LLM API repository.
func NewLLMAPIRepository(cfg *config.Config, logger *slog.Logger) LLMAPIRepository {
	return &llmAPIRepository{
		client:      driver.NewLLMClient(cfg, logger),
		textModel:   cfg.LLM.TextModel,
		visionModel: cfg.LLM.VisionModel,
		logger:      logger,
	}
}

// GenerateText runs one text completion against the configured text model.
func (r *llmAPIRepository) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	content, err := r.client.Complete(ctx, r.textModel, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "text completion failed", "error", err, "model", r.textModel)
		return "", fmt.Errorf("text completion failed: %w", err)
	}

	return content, nil
}

// DescribeMedia runs one vision completion over a media URL.
func (r *llmAPIRepository) DescribeMedia(ctx context.Context, prompt, mediaURL string) (string, error) {
	if mediaURL == "" {
		return "", fmt.Errorf("media URL cannot be empty")
	}

	content, err := r.client.CompleteVision(ctx, r.visionModel, prompt, mediaURL)
	if err != nil {
		r.logger.ErrorContext(ctx, "vision completion failed", "error", err, "model", r.visionModel)
		return "", fmt.Errorf("vision completion failed: %w", err)
	}

	return content, nil
}
