package service

import (
	"context"
	"errors"
	"testing"

	"trend-processor/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberedQueries(t *testing.T) {
	t.Run("should extract plain numbered list", func(t *testing.T) {
		response := "1. pottery wheel asmr\n2. ceramic glaze tutorial\n3. small studio tour"

		texts := parseNumberedQueries(response)

		assert.Equal(t, []string{"pottery wheel asmr", "ceramic glaze tutorial", "small studio tour"}, texts)
	})

	t.Run("should strip quotes and leading hashes", func(t *testing.T) {
		response := "1. \"pottery wheel asmr\"\n2. #ceramictok\n3. 'kiln opening reveal'"

		texts := parseNumberedQueries(response)

		assert.Equal(t, []string{"pottery wheel asmr", "ceramictok", "kiln opening reveal"}, texts)
	})

	t.Run("should ignore preamble and commentary lines", func(t *testing.T) {
		response := "Here are your queries:\n\n1. pottery wheel asmr\n2. ceramic glaze tutorial\n\nHope these help!"

		texts := parseNumberedQueries(response)

		assert.Equal(t, []string{"pottery wheel asmr", "ceramic glaze tutorial"}, texts)
	})

	t.Run("should accept paren-style numbering", func(t *testing.T) {
		texts := parseNumberedQueries("1) first query\n2) second query")

		assert.Equal(t, []string{"first query", "second query"}, texts)
	})

	t.Run("should return nothing for unnumbered text", func(t *testing.T) {
		texts := parseNumberedQueries("pottery wheel asmr\nceramic glaze tutorial")

		assert.Empty(t, texts)
	})
}

func TestQueryGenerator_GenerateQueries(t *testing.T) {
	batchID := uuid.New()
	batch := &domain.TrendBatch{
		BatchID:             batchID,
		OwnerID:             "owner-1",
		BusinessDescription: "handmade ceramics studio",
		QueryCount:          3,
		Stage:               domain.BatchStageGenerating,
	}

	t.Run("should persist queries and advance stage on exact count", func(t *testing.T) {
		batchRepo := &stubBatchRepo{batch: batch}
		queryRepo := &stubQueryRepo{}
		llmRepo := &stubLLMRepo{textResponse: "1. pottery wheel asmr\n2. ceramic glaze tutorial\n3. small studio tour"}
		svc := NewQueryGeneratorService(batchRepo, queryRepo, llmRepo, testLogger())

		queries, err := svc.GenerateQueries(context.Background(), batchID.String())

		require.NoError(t, err)
		assert.Len(t, queries, 3)
		assert.Equal(t, []string{"pottery wheel asmr", "ceramic glaze tutorial", "small studio tour"}, queryRepo.created)
		assert.Equal(t, []domain.BatchStage{domain.BatchStageScraping}, batchRepo.stagesApplied)
	})

	t.Run("should reject partial list without persisting", func(t *testing.T) {
		batchRepo := &stubBatchRepo{batch: batch}
		queryRepo := &stubQueryRepo{}
		llmRepo := &stubLLMRepo{textResponse: "1. pottery wheel asmr\n2. ceramic glaze tutorial"}
		svc := NewQueryGeneratorService(batchRepo, queryRepo, llmRepo, testLogger())

		queries, err := svc.GenerateQueries(context.Background(), batchID.String())

		assert.ErrorIs(t, err, domain.ErrQueryCountMismatch)
		assert.Nil(t, queries)
		assert.Nil(t, queryRepo.created)
		assert.Empty(t, batchRepo.stagesApplied)
	})

	t.Run("should propagate model failure", func(t *testing.T) {
		batchRepo := &stubBatchRepo{batch: batch}
		llmRepo := &stubLLMRepo{textErr: errors.New("upstream down")}
		svc := NewQueryGeneratorService(batchRepo, &stubQueryRepo{}, llmRepo, testLogger())

		queries, err := svc.GenerateQueries(context.Background(), batchID.String())

		assert.Error(t, err)
		assert.Nil(t, queries)
	})

	t.Run("should include business description and count in the prompt", func(t *testing.T) {
		batchRepo := &stubBatchRepo{batch: batch}
		llmRepo := &stubLLMRepo{textResponse: "1. a b\n2. c d\n3. e f"}
		svc := NewQueryGeneratorService(batchRepo, &stubQueryRepo{}, llmRepo, testLogger())

		_, err := svc.GenerateQueries(context.Background(), batchID.String())

		require.NoError(t, err)
		require.Len(t, llmRepo.prompts, 1)
		assert.Contains(t, llmRepo.prompts[0], "handmade ceramics studio")
		assert.Contains(t, llmRepo.prompts[0], "exactly 3")
	})
}
