package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"trend-processor/domain"
	"trend-processor/repository"

	"github.com/labstack/echo/v4"
)

// AnalysisWebhookRequest is the callback body an external analyzer posts
// when it finishes a video.
type AnalysisWebhookRequest struct {
	VideoID      string `json:"video_id"`
	Status       string `json:"status"`
	Description  string `json:"description"`
	ErrorMessage string `json:"error_message"`
}

// WebhookHandler receives analysis results pushed by an external analyzer,
// the callback alternative to the polling endpoints.
type WebhookHandler struct {
	videoRepo    repository.VideoRepository
	sharedSecret string
	logger       *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(videoRepo repository.VideoRepository, sharedSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		videoRepo:    videoRepo,
		sharedSecret: sharedSecret,
		logger:       logger,
	}
}

// HandleAnalysisResult handles POST /webhook/analysis requests.
func (h *WebhookHandler) HandleAnalysisResult(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.verifySecret(c) {
		h.logger.Warn("webhook rejected, bad shared secret", "ip", c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
	}

	var req AnalysisWebhookRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind webhook payload", "error", err)
		return domain.ErrInvalidRequest
	}
	if req.VideoID == "" {
		return domain.ErrInvalidRequest
	}

	var status domain.AnalysisStatus
	switch req.Status {
	case string(domain.AnalysisStatusCompleted):
		status = domain.AnalysisStatusCompleted
		if req.Description == "" {
			return domain.ErrInvalidRequest
		}
	case string(domain.AnalysisStatusFailed):
		status = domain.AnalysisStatusFailed
		if req.ErrorMessage == "" {
			req.ErrorMessage = "external analyzer reported failure"
		}
	default:
		h.logger.Warn("webhook carried unknown status", "status", req.Status, "video_id", req.VideoID)
		return domain.ErrInvalidRequest
	}

	video, err := h.videoRepo.FindByID(ctx, req.VideoID, "")
	if err != nil {
		return err
	}
	// Late or duplicate callbacks must not overwrite a settled result.
	if video.IsTerminal() {
		h.logger.Info("webhook ignored, video already terminal",
			"video_id", req.VideoID, "status", video.AnalysisStatus)
		return c.JSON(http.StatusOK, map[string]string{
			"video_id": req.VideoID,
			"status":   string(video.AnalysisStatus),
		})
	}

	if err := h.videoRepo.UpdateAnalysis(ctx, req.VideoID, status, req.Description, req.ErrorMessage); err != nil {
		return err
	}

	h.logger.Info("webhook analysis result recorded", "video_id", req.VideoID, "status", status)
	return c.JSON(http.StatusOK, map[string]string{"video_id": req.VideoID, "status": string(status)})
}

func (h *WebhookHandler) verifySecret(c echo.Context) bool {
	if h.sharedSecret == "" {
		return false
	}
	got := c.Request().Header.Get("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.sharedSecret)) == 1
}
