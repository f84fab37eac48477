package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/driver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Scraper: config.ScraperConfig{
			RequestCount: 20,
			KeepCount:    5,
		},
		LLM: config.LLMConfig{
			MinContentLength: 50,
		},
		Pipeline: config.PipelineConfig{
			StuckAfter:     5 * time.Minute,
			PollInterval:   time.Millisecond,
			PollBudget:     50 * time.Millisecond,
			DefaultQueries: 5,
			MaxQueries:     10,
			SynthesisCap:   20,
			MaxRetries:     3,
		},
	}
}

type stubBatchRepo struct {
	batch         *domain.TrendBatch
	getErr        error
	createErr     error
	updateErr     error
	stagesApplied []domain.BatchStage
}

func (s *stubBatchRepo) CreateBatch(_ context.Context, ownerID, businessDescription string, queryCount int) (*domain.TrendBatch, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.batch != nil {
		return s.batch, nil
	}
	return &domain.TrendBatch{
		OwnerID:             ownerID,
		BusinessDescription: businessDescription,
		QueryCount:          queryCount,
		Stage:               domain.BatchStageGenerating,
	}, nil
}

func (s *stubBatchRepo) GetBatch(_ context.Context, _, ownerID string) (*domain.TrendBatch, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.batch != nil && ownerID != "" && s.batch.OwnerID != ownerID {
		return nil, domain.ErrBatchNotFound
	}
	return s.batch, nil
}

func (s *stubBatchRepo) UpdateBatchStage(_ context.Context, _ string, stage domain.BatchStage) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.stagesApplied = append(s.stagesApplied, stage)
	return nil
}

type stubQueryRepo struct {
	queries   []*domain.Query
	created   []string
	createErr error
	findErr   error
}

func (s *stubQueryRepo) CreateQueries(_ context.Context, batchID, ownerID string, texts []string) ([]*domain.Query, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = texts
	queries := make([]*domain.Query, 0, len(texts))
	for _, text := range texts {
		queries = append(queries, &domain.Query{OwnerID: ownerID, Text: text})
	}
	return queries, nil
}

func (s *stubQueryRepo) FindByID(_ context.Context, queryID string) (*domain.Query, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, q := range s.queries {
		if q.ID.String() == queryID {
			return q, nil
		}
	}
	return nil, domain.ErrQueryNotFound
}

func (s *stubQueryRepo) FindByBatch(_ context.Context, _ string) ([]*domain.Query, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.queries, nil
}

type analysisUpdate struct {
	videoID      string
	status       domain.AnalysisStatus
	description  string
	errorMessage string
}

type stubVideoRepo struct {
	videos    map[string]*domain.Video
	byBatch   []*domain.Video
	completed []*domain.Video
	stale     []*domain.Video
	pending   []*domain.Video
	updates   []analysisUpdate
	created   []*domain.Video
	findErr   error
	updateErr error
	createErr error
}

func (s *stubVideoRepo) CreateVideos(_ context.Context, videos []*domain.Video) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = videos
	return nil
}

func (s *stubVideoRepo) FindByID(_ context.Context, videoID, ownerID string) (*domain.Video, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	video, ok := s.videos[videoID]
	if !ok || (ownerID != "" && video.OwnerID != ownerID) {
		return nil, domain.ErrVideoNotFound
	}
	return video, nil
}

func (s *stubVideoRepo) FindByBatch(_ context.Context, _ string) ([]*domain.Video, error) {
	return s.byBatch, s.findErr
}

func (s *stubVideoRepo) FindCompletedByBatch(_ context.Context, _ string) ([]*domain.Video, error) {
	return s.completed, s.findErr
}

func (s *stubVideoRepo) UpdateAnalysis(_ context.Context, videoID string, status domain.AnalysisStatus, description, errorMessage string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, analysisUpdate{videoID, status, description, errorMessage})
	if video, ok := s.videos[videoID]; ok {
		video.AnalysisStatus = status
	}
	return nil
}

func (s *stubVideoRepo) FindStale(_ context.Context, _ time.Time, _ int) ([]*domain.Video, error) {
	return s.stale, s.findErr
}

func (s *stubVideoRepo) FindPendingOlderThan(_ context.Context, _ time.Time, _ int) ([]*domain.Video, error) {
	return s.pending, s.findErr
}

func (s *stubVideoRepo) CountNonTerminalByBatch(_ context.Context, _ string) (int, error) {
	count := 0
	for _, v := range s.byBatch {
		if !v.IsTerminal() {
			count++
		}
	}
	return count, nil
}

type stubAnalysisSink struct {
	published []dispatchedChain
	err       error
}

func (s *stubAnalysisSink) PublishAnalysisRequested(_ context.Context, batchID, videoID string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, dispatchedChain{batchID, []string{videoID}})
	return nil
}

type stubRecRepo struct {
	created   *domain.Recommendation
	found     *domain.Recommendation
	createErr error
	findErr   error
}

func (s *stubRecRepo) Create(_ context.Context, rec *domain.Recommendation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = rec
	return nil
}

func (s *stubRecRepo) FindByBatch(_ context.Context, _ string) (*domain.Recommendation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.found == nil {
		return nil, domain.ErrRecommendationNotFound
	}
	return s.found, nil
}

type stubScraperRepo struct {
	results map[string][]driver.VideoSearchResult
	err     error
}

func (s *stubScraperRepo) SearchVideos(_ context.Context, keywords string) ([]driver.VideoSearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results[keywords], nil
}

type stubLLMRepo struct {
	textResponse   string
	visionResponse string
	textErr        error
	visionErr      error
	prompts        []string
	mediaURLs      []string
}

func (s *stubLLMRepo) GenerateText(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.textErr != nil {
		return "", s.textErr
	}
	return s.textResponse, nil
}

func (s *stubLLMRepo) DescribeMedia(_ context.Context, prompt, mediaURL string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.mediaURLs = append(s.mediaURLs, mediaURL)
	if s.visionErr != nil {
		return "", s.visionErr
	}
	return s.visionResponse, nil
}

type dispatchedChain struct {
	batchID string
	ids     []string
}

type stubDispatcher struct {
	generations []string
	scrapes     []dispatchedChain
	chains      []dispatchedChain
	syntheses   []string
}

func (s *stubDispatcher) DispatchGeneration(batchID string) {
	s.generations = append(s.generations, batchID)
}

func (s *stubDispatcher) DispatchScrape(batchID string, queryIDs []string) {
	s.scrapes = append(s.scrapes, dispatchedChain{batchID, queryIDs})
}

func (s *stubDispatcher) DispatchAnalysisChain(batchID string, videoIDs []string) {
	s.chains = append(s.chains, dispatchedChain{batchID, videoIDs})
}

func (s *stubDispatcher) DispatchSynthesis(batchID string) {
	s.syntheses = append(s.syntheses, batchID)
}
