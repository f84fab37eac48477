package service

import (
	"context"
	"fmt"
	"log/slog"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/repository"
)

// VideoScraperService implementation.
type videoScraperService struct {
	queryRepo   repository.QueryRepository
	videoRepo   repository.VideoRepository
	scraperRepo repository.ScraperAPIRepository
	cfg         *config.Config
	logger      *slog.Logger
}

// NewVideoScraperService creates a new video scraper service.
func NewVideoScraperService(
	queryRepo repository.QueryRepository,
	videoRepo repository.VideoRepository,
	scraperRepo repository.ScraperAPIRepository,
	cfg *config.Config,
	logger *slog.Logger,
) VideoScraperService {
	return &videoScraperService{
		queryRepo:   queryRepo,
		videoRepo:   videoRepo,
		scraperRepo: scraperRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// ScrapeQuery searches the vendor for one stored query and keeps the first
// playable results in vendor order. One link of the scrape chain; the caller
// decides what a failed search means for the batch.
func (s *videoScraperService) ScrapeQuery(ctx context.Context, queryID string) (*ScrapeResult, error) {
	query, err := s.queryRepo.FindByID(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	s.logger.InfoContext(ctx, "scraping query",
		"query_id", query.ID, "batch_id", query.BatchID, "text", query.Text)

	items, err := s.scraperRepo.SearchVideos(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("search failed for query %q: %w", query.Text, err)
	}

	result := &ScrapeResult{}
	var videos []*domain.Video
	for _, item := range items {
		if len(videos) >= s.cfg.Scraper.KeepCount {
			break
		}
		if item.SourceURL == "" && item.DownloadURL == "" {
			result.SkippedCount++
			continue
		}
		videos = append(videos, &domain.Video{
			QueryID:        query.ID,
			BatchID:        query.BatchID,
			OwnerID:        query.OwnerID,
			SourceURL:      item.SourceURL,
			DownloadURL:    item.DownloadURL,
			Caption:        item.Caption,
			Stats:          domain.VideoStats{Views: item.Views, Likes: item.Likes},
			Hashtags:       item.Hashtags,
			AnalysisStatus: domain.AnalysisStatusPending,
			MaxRetries:     s.cfg.Pipeline.MaxRetries,
		})
	}

	if err := s.videoRepo.CreateVideos(ctx, videos); err != nil {
		return nil, fmt.Errorf("failed to persist videos: %w", err)
	}
	result.VideoCount = len(videos)

	s.logger.InfoContext(ctx, "query scrape completed",
		"query_id", query.ID,
		"batch_id", query.BatchID,
		"videos", result.VideoCount,
		"skipped", result.SkippedCount)
	return result, nil
}
