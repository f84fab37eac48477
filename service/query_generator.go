package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"trend-processor/domain"
	"trend-processor/repository"
)

// numberedLine matches "1. query text" with optional surrounding noise.
var numberedLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+)$`)

// QueryGeneratorService implementation.
type queryGeneratorService struct {
	batchRepo repository.BatchRepository
	queryRepo repository.QueryRepository
	llmRepo   repository.LLMAPIRepository
	logger    *slog.Logger
}

// NewQueryGeneratorService creates a new query generator service.
func NewQueryGeneratorService(
	batchRepo repository.BatchRepository,
	queryRepo repository.QueryRepository,
	llmRepo repository.LLMAPIRepository,
	logger *slog.Logger,
) QueryGeneratorService {
	return &queryGeneratorService{
		batchRepo: batchRepo,
		queryRepo: queryRepo,
		llmRepo:   llmRepo,
		logger:    logger,
	}
}

// GenerateQueries asks the text model for exactly the batch's query count.
// A response that parses to any other count is rejected whole; partial query
// lists never reach the database.
func (s *queryGeneratorService) GenerateQueries(ctx context.Context, batchID string) ([]*domain.Query, error) {
	s.logger.InfoContext(ctx, "starting query generation", "batch_id", batchID)

	batch, err := s.batchRepo.GetBatch(ctx, batchID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	prompt := buildQueryPrompt(batch.BusinessDescription, batch.QueryCount)

	response, err := s.llmRepo.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "query generation failed", "error", err, "batch_id", batchID)
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	texts := parseNumberedQueries(response)
	if len(texts) != batch.QueryCount {
		s.logger.ErrorContext(ctx, "query count mismatch",
			"batch_id", batchID, "expected", batch.QueryCount, "got", len(texts))
		return nil, fmt.Errorf("%w: expected %d, got %d",
			domain.ErrQueryCountMismatch, batch.QueryCount, len(texts))
	}

	queries, err := s.queryRepo.CreateQueries(ctx, batchID, batch.OwnerID, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to persist queries: %w", err)
	}

	if err := s.batchRepo.UpdateBatchStage(ctx, batchID, domain.BatchStageScraping); err != nil {
		return nil, fmt.Errorf("failed to advance batch stage: %w", err)
	}

	s.logger.InfoContext(ctx, "query generation completed", "batch_id", batchID, "count", len(queries))
	return queries, nil
}

func buildQueryPrompt(businessDescription string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a marketing strategist researching short-video trends.\n\n")
	fmt.Fprintf(&b, "Business: %s\n\n", businessDescription)
	fmt.Fprintf(&b, "Generate exactly %d TikTok search queries that would surface trending videos relevant to this business.\n", count)
	b.WriteString("Rules:\n")
	b.WriteString("- Each query is 2 to 5 words that real users would type into TikTok search.\n")
	b.WriteString("- Mix product-adjacent, audience-interest, and broader trend angles.\n")
	b.WriteString("- Respond with a numbered list only. No headings, no commentary.\n")
	return b.String()
}

// parseNumberedQueries extracts query text from a numbered-list response,
// stripping list markers, wrapping quotes, and leading hashes. Lines that do
// not look like list entries are ignored so preambles do not poison the count.
func parseNumberedQueries(response string) []string {
	var texts []string
	for _, line := range strings.Split(response, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		text = strings.Trim(text, `"'`)
		text = strings.TrimPrefix(text, "#")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}
