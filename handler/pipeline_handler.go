package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"trend-processor/domain"
	"trend-processor/service"

	"github.com/labstack/echo/v4"
)

// StartPipelineRequest is the request body for starting a trend discovery run.
type StartPipelineRequest struct {
	BusinessDescription string `json:"business_description"`
	QueryCount          int    `json:"query_count"`
	OwnerID             string `json:"owner_id"`
}

// StartPipelineResponse acknowledges an accepted pipeline run.
type StartPipelineResponse struct {
	BatchID string `json:"batch_id"`
	Stage   string `json:"stage"`
}

// StageRequest is the request body shared by the stage self-call routes.
type StageRequest struct {
	BatchID  string   `json:"batch_id"`
	Queries  []string `json:"queries"`
	VideoIDs []string `json:"video_ids"`
}

// PipelineHandler handles the pipeline HTTP API.
type PipelineHandler struct {
	pipeline service.PipelineService
	checker  service.StatusCheckerService
	poller   service.StatusPollerService
	logger   *slog.Logger
	ownerID  func(echo.Context) string
}

// NewPipelineHandler creates a new pipeline handler. ownerID extracts the
// authenticated owner from a request; it is injected so the handler does not
// depend on the auth middleware package.
func NewPipelineHandler(
	pipeline service.PipelineService,
	checker service.StatusCheckerService,
	poller service.StatusPollerService,
	ownerID func(echo.Context) string,
	logger *slog.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		pipeline: pipeline,
		checker:  checker,
		poller:   poller,
		ownerID:  ownerID,
		logger:   logger,
	}
}

// HandleStartPipeline handles POST /api/v1/pipeline/start requests. The run
// is accepted as soon as the batch exists; callers poll the batch status.
func (h *PipelineHandler) HandleStartPipeline(c echo.Context) error {
	ctx := c.Request().Context()

	var req StartPipelineRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind request", "error", err)
		return domain.ErrInvalidRequest
	}

	owner := h.ownerID(c)
	if owner == "" {
		// Pipeline-token callers name the owner explicitly.
		owner = req.OwnerID
	}

	batch, err := h.pipeline.StartPipeline(ctx, owner, req.BusinessDescription, req.QueryCount)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, StartPipelineResponse{
		BatchID: batch.BatchID.String(),
		Stage:   string(batch.Stage),
	})
}

// HandleGenerateQueries handles POST /api/v1/queries/generate requests.
func (h *PipelineHandler) HandleGenerateQueries(c echo.Context) error {
	return h.runStage(c, h.pipeline.RunGeneration)
}

// HandleScrapeVideos handles POST /api/v1/videos/scrape requests. The body
// carries the remaining query chain; only its head is scraped here, the tail
// is re-dispatched before this handler's response is written.
func (h *PipelineHandler) HandleScrapeVideos(c echo.Context) error {
	ctx := c.Request().Context()

	var req StageRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind request", "error", err)
		return domain.ErrInvalidRequest
	}
	if req.BatchID == "" {
		return domain.ErrInvalidRequest
	}

	if err := h.pipeline.RunScrape(ctx, req.BatchID, req.Queries); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"batch_id":  req.BatchID,
		"remaining": len(req.Queries),
	})
}

// HandleAnalyzeVideos handles POST /api/v1/videos/analyze requests. The body
// carries the remaining chain; only its head is analyzed here, the tail is
// re-dispatched before this handler's response is written.
func (h *PipelineHandler) HandleAnalyzeVideos(c echo.Context) error {
	ctx := c.Request().Context()

	var req StageRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind request", "error", err)
		return domain.ErrInvalidRequest
	}
	if req.BatchID == "" {
		return domain.ErrInvalidRequest
	}

	if err := h.pipeline.RunAnalysisChain(ctx, req.BatchID, req.VideoIDs); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"batch_id":  req.BatchID,
		"remaining": len(req.VideoIDs),
	})
}

// HandleSynthesize handles POST /api/v1/recommendations/synthesize requests.
func (h *PipelineHandler) HandleSynthesize(c echo.Context) error {
	return h.runStage(c, h.pipeline.RunSynthesis)
}

func (h *PipelineHandler) runStage(c echo.Context, stage func(ctx context.Context, batchID string) error) error {
	ctx := c.Request().Context()

	var req StageRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind request", "error", err)
		return domain.ErrInvalidRequest
	}
	if req.BatchID == "" {
		return domain.ErrInvalidRequest
	}

	if err := stage(ctx, req.BatchID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"batch_id": req.BatchID})
}

// HandleVideoStatus handles GET /api/v1/videos/:id/status requests.
func (h *PipelineHandler) HandleVideoStatus(c echo.Context) error {
	ctx := c.Request().Context()

	videoID := c.Param("id")
	if videoID == "" {
		return domain.ErrInvalidRequest
	}

	video, err := h.checker.CheckVideo(ctx, videoID, h.ownerID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, video)
}

// HandleVideoWait handles GET /api/v1/videos/:id/wait requests, blocking
// until the analysis finishes or the poll budget runs out.
func (h *PipelineHandler) HandleVideoWait(c echo.Context) error {
	ctx := c.Request().Context()

	videoID := c.Param("id")
	if videoID == "" {
		return domain.ErrInvalidRequest
	}

	video, err := h.poller.WaitForVideo(ctx, videoID, h.ownerID(c))
	if err != nil {
		if errors.Is(err, domain.ErrPollBudgetExhausted) && video != nil {
			// Surface the last known state alongside the timeout.
			return c.JSON(http.StatusGatewayTimeout, video)
		}
		return err
	}

	return c.JSON(http.StatusOK, video)
}

// HandleBatchStatus handles GET /api/v1/pipeline/status/:batch_id requests.
func (h *PipelineHandler) HandleBatchStatus(c echo.Context) error {
	ctx := c.Request().Context()

	batchID := c.Param("batch_id")
	if batchID == "" {
		return domain.ErrInvalidRequest
	}

	status, err := h.checker.CheckBatch(ctx, batchID, h.ownerID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, status)
}
