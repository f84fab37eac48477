package service

import (
	"context"
	"testing"
	"time"

	"trend-processor/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processingVideo(dispatchedAgo time.Duration) *domain.Video {
	dispatched := time.Now().Add(-dispatchedAgo)
	return &domain.Video{
		ID:             uuid.New(),
		BatchID:        uuid.New(),
		SourceURL:      "https://example.com/video",
		AnalysisStatus: domain.AnalysisStatusProcessing,
		DispatchedAt:   &dispatched,
	}
}

func TestStatusChecker_CheckVideo(t *testing.T) {
	t.Run("should return a fresh processing video untouched", func(t *testing.T) {
		video := processingVideo(time.Minute)
		videoRepo := &stubVideoRepo{videos: map[string]*domain.Video{video.ID.String(): video}}
		svc := NewStatusCheckerService(&stubBatchRepo{}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		got, err := svc.CheckVideo(context.Background(), video.ID.String(), "")

		require.NoError(t, err)
		assert.Equal(t, domain.AnalysisStatusProcessing, got.AnalysisStatus)
		assert.Empty(t, videoRepo.updates)
	})

	t.Run("should rewrite a stuck video to failed on read", func(t *testing.T) {
		video := processingVideo(10 * time.Minute)
		videoRepo := &stubVideoRepo{videos: map[string]*domain.Video{video.ID.String(): video}}
		svc := NewStatusCheckerService(&stubBatchRepo{}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		got, err := svc.CheckVideo(context.Background(), video.ID.String(), "")

		require.NoError(t, err)
		assert.Equal(t, domain.AnalysisStatusFailed, got.AnalysisStatus)
		require.Len(t, videoRepo.updates, 1)
		assert.Equal(t, domain.AnalysisStatusFailed, videoRepo.updates[0].status)
		assert.Equal(t, "analysis took too long and was terminated", videoRepo.updates[0].errorMessage)
	})

	t.Run("should not rewrite a terminal video regardless of age", func(t *testing.T) {
		video := processingVideo(10 * time.Minute)
		video.AnalysisStatus = domain.AnalysisStatusCompleted
		videoRepo := &stubVideoRepo{videos: map[string]*domain.Video{video.ID.String(): video}}
		svc := NewStatusCheckerService(&stubBatchRepo{}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		got, err := svc.CheckVideo(context.Background(), video.ID.String(), "")

		require.NoError(t, err)
		assert.Equal(t, domain.AnalysisStatusCompleted, got.AnalysisStatus)
		assert.Empty(t, videoRepo.updates)
	})

	t.Run("should hide another owner's video", func(t *testing.T) {
		video := processingVideo(time.Minute)
		video.OwnerID = "owner-1"
		videoRepo := &stubVideoRepo{videos: map[string]*domain.Video{video.ID.String(): video}}
		svc := NewStatusCheckerService(&stubBatchRepo{}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		got, err := svc.CheckVideo(context.Background(), video.ID.String(), "owner-2")

		assert.ErrorIs(t, err, domain.ErrVideoNotFound)
		assert.Nil(t, got)
	})

	t.Run("should return not found for an unknown video", func(t *testing.T) {
		svc := NewStatusCheckerService(&stubBatchRepo{}, &stubVideoRepo{videos: map[string]*domain.Video{}}, &stubRecRepo{}, testConfig(), testLogger())

		got, err := svc.CheckVideo(context.Background(), uuid.NewString(), "")

		assert.ErrorIs(t, err, domain.ErrVideoNotFound)
		assert.Nil(t, got)
	})
}

func TestStatusChecker_CheckBatch(t *testing.T) {
	batchID := uuid.New()
	batch := &domain.TrendBatch{BatchID: batchID, OwnerID: "owner-1", Stage: domain.BatchStageAnalyzing}

	t.Run("should count non-terminal videos", func(t *testing.T) {
		videos := []*domain.Video{
			{ID: uuid.New(), AnalysisStatus: domain.AnalysisStatusCompleted},
			{ID: uuid.New(), AnalysisStatus: domain.AnalysisStatusProcessing},
			{ID: uuid.New(), AnalysisStatus: domain.AnalysisStatusPending},
		}
		videoRepo := &stubVideoRepo{byBatch: videos}
		svc := NewStatusCheckerService(&stubBatchRepo{batch: batch}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		status, err := svc.CheckBatch(context.Background(), batchID.String(), "owner-1")

		require.NoError(t, err)
		assert.Equal(t, 2, status.PendingVideos)
		assert.Nil(t, status.Recommendation)
	})

	t.Run("should attach the recommendation once it exists", func(t *testing.T) {
		rec := &domain.Recommendation{ID: uuid.New(), BatchID: batchID, SummaryText: "summary"}
		svc := NewStatusCheckerService(&stubBatchRepo{batch: batch}, &stubVideoRepo{}, &stubRecRepo{found: rec}, testConfig(), testLogger())

		status, err := svc.CheckBatch(context.Background(), batchID.String(), "owner-1")

		require.NoError(t, err)
		require.NotNil(t, status.Recommendation)
		assert.Equal(t, "summary", status.Recommendation.SummaryText)
	})

	t.Run("should hide another owner's batch", func(t *testing.T) {
		svc := NewStatusCheckerService(&stubBatchRepo{batch: batch}, &stubVideoRepo{}, &stubRecRepo{}, testConfig(), testLogger())

		status, err := svc.CheckBatch(context.Background(), batchID.String(), "owner-2")

		assert.ErrorIs(t, err, domain.ErrBatchNotFound)
		assert.Nil(t, status)
	})
}

func TestStatusChecker_SweepStale(t *testing.T) {
	t.Run("should rewrite every stale video", func(t *testing.T) {
		stale := []*domain.Video{processingVideo(10 * time.Minute), processingVideo(20 * time.Minute)}
		videoRepo := &stubVideoRepo{stale: stale, videos: map[string]*domain.Video{}}
		svc := NewStatusCheckerService(&stubBatchRepo{}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		swept, err := svc.SweepStale(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, swept)
		assert.Len(t, videoRepo.updates, 2)
	})

	t.Run("should sweep nothing when nothing is stale", func(t *testing.T) {
		videoRepo := &stubVideoRepo{}
		svc := NewStatusCheckerService(&stubBatchRepo{}, videoRepo, &stubRecRepo{}, testConfig(), testLogger())

		swept, err := svc.SweepStale(context.Background())

		require.NoError(t, err)
		assert.Zero(t, swept)
	})
}
