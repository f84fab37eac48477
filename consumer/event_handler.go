// Package consumer provides event handling for trend-processor.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// EventType constants.
const (
	EventTypePipelineRequested = "PipelineRequested"
	EventTypeAnalysisRequested = "VideoAnalysisRequested"
)

// ErrMalformedEvent marks an event whose payload can never parse. Redelivery
// cannot fix it; the consumer dead-letters it instead.
var ErrMalformedEvent = errors.New("malformed event payload")

// PipelineRequestedPayload asks for a full pipeline run for an owner.
type PipelineRequestedPayload struct {
	OwnerID             string `json:"owner_id"`
	BusinessDescription string `json:"business_description"`
	QueryCount          int    `json:"query_count"`
}

// AnalysisRequestedPayload asks for one video to be analyzed or re-analyzed.
type AnalysisRequestedPayload struct {
	VideoID string `json:"video_id"`
	BatchID string `json:"batch_id"`
}

// PipelineRunner is the slice of pipeline behavior the queue needs.
type PipelineRunner interface {
	StartPipelineRun(ctx context.Context, ownerID, businessDescription string, queryCount int) error
	AnalyzeVideo(ctx context.Context, videoID, batchID string) error
}

// PipelineEventHandler routes queue events to the pipeline.
type PipelineEventHandler struct {
	runner PipelineRunner
	logger *slog.Logger
}

// NewPipelineEventHandler creates a new PipelineEventHandler.
func NewPipelineEventHandler(runner PipelineRunner, logger *slog.Logger) *PipelineEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineEventHandler{
		runner: runner,
		logger: logger,
	}
}

// HandleEvent processes a single event based on its type. Unknown event
// types are ACKed and dropped; the stream is shared with other services.
func (h *PipelineEventHandler) HandleEvent(ctx context.Context, event Event) error {
	h.logger.Info("handling event",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"message_id", event.MessageID,
	)

	switch event.EventType {
	case EventTypePipelineRequested:
		return h.handlePipelineRequested(ctx, event)
	case EventTypeAnalysisRequested:
		return h.handleAnalysisRequested(ctx, event)
	default:
		h.logger.Debug("ignoring unknown event type", "event_type", event.EventType)
		return nil
	}
}

func (h *PipelineEventHandler) handlePipelineRequested(ctx context.Context, event Event) error {
	var payload PipelineRequestedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Error("failed to unmarshal PipelineRequested payload",
			"event_id", event.EventID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if err := h.runner.StartPipelineRun(ctx, payload.OwnerID, payload.BusinessDescription, payload.QueryCount); err != nil {
		h.logger.Error("failed to start pipeline from event",
			"owner_id", payload.OwnerID,
			"error", err,
		)
		return err
	}

	return nil
}

func (h *PipelineEventHandler) handleAnalysisRequested(ctx context.Context, event Event) error {
	var payload AnalysisRequestedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Error("failed to unmarshal VideoAnalysisRequested payload",
			"event_id", event.EventID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	h.logger.Info("processing VideoAnalysisRequested event",
		"video_id", payload.VideoID,
		"batch_id", payload.BatchID,
	)

	if err := h.runner.AnalyzeVideo(ctx, payload.VideoID, payload.BatchID); err != nil {
		h.logger.Error("failed to analyze video from event",
			"video_id", payload.VideoID,
			"error", err,
		)
		return err
	}

	return nil
}
