package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trend-processor/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedUpdate struct {
	videoID      string
	status       domain.AnalysisStatus
	description  string
	errorMessage string
}

type webhookVideoRepo struct {
	video     *domain.Video
	updates   []recordedUpdate
	updateErr error
}

func (r *webhookVideoRepo) CreateVideos(_ context.Context, _ []*domain.Video) error { return nil }
func (r *webhookVideoRepo) FindByID(_ context.Context, _, _ string) (*domain.Video, error) {
	if r.video == nil {
		return nil, domain.ErrVideoNotFound
	}
	return r.video, nil
}
func (r *webhookVideoRepo) FindByBatch(_ context.Context, _ string) ([]*domain.Video, error) {
	return nil, nil
}
func (r *webhookVideoRepo) FindCompletedByBatch(_ context.Context, _ string) ([]*domain.Video, error) {
	return nil, nil
}
func (r *webhookVideoRepo) UpdateAnalysis(_ context.Context, videoID string, status domain.AnalysisStatus, description, errorMessage string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, recordedUpdate{videoID, status, description, errorMessage})
	return nil
}
func (r *webhookVideoRepo) FindStale(_ context.Context, _ time.Time, _ int) ([]*domain.Video, error) {
	return nil, nil
}
func (r *webhookVideoRepo) FindPendingOlderThan(_ context.Context, _ time.Time, _ int) ([]*domain.Video, error) {
	return nil, nil
}
func (r *webhookVideoRepo) CountNonTerminalByBatch(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func postWebhook(t *testing.T, h *WebhookHandler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook/analysis", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleAnalysisResult(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestWebhookHandler_HandleAnalysisResult(t *testing.T) {
	const secret = "webhook-secret"
	longDescription := strings.Repeat("scene detail ", 10)

	t.Run("should record a completed analysis", func(t *testing.T) {
		repo := &webhookVideoRepo{video: &domain.Video{AnalysisStatus: domain.AnalysisStatusProcessing}}
		h := NewWebhookHandler(repo, secret, testHandlerLogger())

		rec := postWebhook(t, h, secret,
			`{"video_id":"v1","status":"completed","description":"`+longDescription+`"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, repo.updates, 1)
		assert.Equal(t, domain.AnalysisStatusCompleted, repo.updates[0].status)
		assert.Equal(t, longDescription, repo.updates[0].description)
	})

	t.Run("should record a failed analysis with a default message", func(t *testing.T) {
		repo := &webhookVideoRepo{video: &domain.Video{AnalysisStatus: domain.AnalysisStatusProcessing}}
		h := NewWebhookHandler(repo, secret, testHandlerLogger())

		rec := postWebhook(t, h, secret, `{"video_id":"v1","status":"failed"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, repo.updates, 1)
		assert.Equal(t, domain.AnalysisStatusFailed, repo.updates[0].status)
		assert.Equal(t, "external analyzer reported failure", repo.updates[0].errorMessage)
	})

	t.Run("should reject a missing or wrong secret", func(t *testing.T) {
		repo := &webhookVideoRepo{}
		h := NewWebhookHandler(repo, secret, testHandlerLogger())

		rec := postWebhook(t, h, "wrong", `{"video_id":"v1","status":"failed"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, repo.updates)
	})

	t.Run("should reject everything when no secret is configured", func(t *testing.T) {
		h := NewWebhookHandler(&webhookVideoRepo{}, "", testHandlerLogger())

		rec := postWebhook(t, h, "", `{"video_id":"v1","status":"failed"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject non-terminal statuses", func(t *testing.T) {
		repo := &webhookVideoRepo{}
		h := NewWebhookHandler(repo, secret, testHandlerLogger())

		rec := postWebhook(t, h, secret, `{"video_id":"v1","status":"processing"}`)

		assert.NotEqual(t, http.StatusOK, rec.Code)
		assert.Empty(t, repo.updates)
	})

	t.Run("should not overwrite an already terminal video", func(t *testing.T) {
		repo := &webhookVideoRepo{video: &domain.Video{AnalysisStatus: domain.AnalysisStatusCompleted}}
		h := NewWebhookHandler(repo, secret, testHandlerLogger())

		rec := postWebhook(t, h, secret, `{"video_id":"v1","status":"failed"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, repo.updates)
		assert.Contains(t, rec.Body.String(), string(domain.AnalysisStatusCompleted))
	})

	t.Run("should reject a completed result without a description", func(t *testing.T) {
		repo := &webhookVideoRepo{}
		h := NewWebhookHandler(repo, secret, testHandlerLogger())

		rec := postWebhook(t, h, secret, `{"video_id":"v1","status":"completed"}`)

		assert.NotEqual(t, http.StatusOK, rec.Code)
		assert.Empty(t, repo.updates)
	})
}
