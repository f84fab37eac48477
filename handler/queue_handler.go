// ABOUTME: This file handles queue-based pipeline intake over Redis Streams
// ABOUTME: Accepts a run request and enqueues it for the stream consumer instead of running inline
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"trend-processor/domain"

	"github.com/labstack/echo/v4"
)

// EventPublisher appends pipeline events to the task stream.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// EnqueuePipelineRequest is the payload for POST /api/v1/pipeline/enqueue.
type EnqueuePipelineRequest struct {
	BusinessDescription string `json:"business_description"`
	QueryCount          int    `json:"query_count"`
	OwnerID             string `json:"owner_id,omitempty"`
}

type enqueuePayload struct {
	OwnerID             string `json:"owner_id"`
	BusinessDescription string `json:"business_description"`
	QueryCount          int    `json:"query_count"`
}

// QueueHandler enqueues pipeline runs onto the Redis stream. The consumer
// side picks them up, so a run survives a process restart between accept
// and start.
type QueueHandler struct {
	publisher EventPublisher
	eventType string
	ownerID   func(echo.Context) string
	logger    *slog.Logger
}

// NewQueueHandler creates a new queue handler. publisher may be nil when the
// stream is not configured; requests are then rejected.
func NewQueueHandler(publisher EventPublisher, eventType string, ownerID func(echo.Context) string, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		publisher: publisher,
		eventType: eventType,
		ownerID:   ownerID,
		logger:    logger,
	}
}

// HandleEnqueue handles POST /api/v1/pipeline/enqueue requests.
func (h *QueueHandler) HandleEnqueue(c echo.Context) error {
	ctx := c.Request().Context()

	if h.publisher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "task queue is not available")
	}

	var req EnqueuePipelineRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind request", "error", err)
		return domain.ErrInvalidRequest
	}

	owner := h.ownerID(c)
	if owner == "" {
		owner = req.OwnerID
	}
	if owner == "" {
		return domain.ErrMissingOwner
	}
	if strings.TrimSpace(req.BusinessDescription) == "" {
		return domain.ErrMissingBusinessDescription
	}

	payload := enqueuePayload{
		OwnerID:             owner,
		BusinessDescription: req.BusinessDescription,
		QueryCount:          req.QueryCount,
	}
	if err := h.publisher.Publish(ctx, h.eventType, payload); err != nil {
		h.logger.Error("failed to enqueue pipeline run", "owner_id", owner, "error", err)
		return err
	}

	h.logger.Info("pipeline run enqueued", "owner_id", owner, "query_count", req.QueryCount)

	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}
