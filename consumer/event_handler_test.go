package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	started  []string
	analyzed []string
	batches  []string
	err      error
}

func (s *stubRunner) StartPipelineRun(_ context.Context, ownerID, _ string, _ int) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, ownerID)
	return nil
}

func (s *stubRunner) AnalyzeVideo(_ context.Context, videoID, batchID string) error {
	if s.err != nil {
		return s.err
	}
	s.analyzed = append(s.analyzed, videoID)
	s.batches = append(s.batches, batchID)
	return nil
}

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventWithPayload(t *testing.T, eventType string, payload interface{}) Event {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return Event{
		MessageID: "1-0",
		EventID:   "evt-1",
		EventType: eventType,
		Source:    "test",
		Payload:   body,
	}
}

func TestPipelineEventHandler_HandleEvent(t *testing.T) {
	t.Run("should start a pipeline for PipelineRequested", func(t *testing.T) {
		runner := &stubRunner{}
		handler := NewPipelineEventHandler(runner, testHandlerLogger())
		event := eventWithPayload(t, EventTypePipelineRequested, PipelineRequestedPayload{
			OwnerID:             "owner-1",
			BusinessDescription: "handmade ceramics studio",
			QueryCount:          5,
		})

		err := handler.HandleEvent(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, []string{"owner-1"}, runner.started)
	})

	t.Run("should analyze one video for VideoAnalysisRequested", func(t *testing.T) {
		runner := &stubRunner{}
		handler := NewPipelineEventHandler(runner, testHandlerLogger())
		event := eventWithPayload(t, EventTypeAnalysisRequested, AnalysisRequestedPayload{
			VideoID: "video-1",
			BatchID: "batch-1",
		})

		err := handler.HandleEvent(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, []string{"video-1"}, runner.analyzed)
		assert.Equal(t, []string{"batch-1"}, runner.batches)
	})

	t.Run("should drop unknown event types without error", func(t *testing.T) {
		runner := &stubRunner{}
		handler := NewPipelineEventHandler(runner, testHandlerLogger())

		err := handler.HandleEvent(context.Background(), Event{EventType: "SomethingElse"})

		assert.NoError(t, err)
		assert.Empty(t, runner.started)
		assert.Empty(t, runner.analyzed)
	})

	t.Run("should surface runner failures so the task stays pending", func(t *testing.T) {
		runner := &stubRunner{err: errors.New("analysis failed")}
		handler := NewPipelineEventHandler(runner, testHandlerLogger())
		event := eventWithPayload(t, EventTypeAnalysisRequested, AnalysisRequestedPayload{VideoID: "video-1"})

		err := handler.HandleEvent(context.Background(), event)

		assert.Error(t, err)
	})

	t.Run("should reject malformed payloads", func(t *testing.T) {
		handler := NewPipelineEventHandler(&stubRunner{}, testHandlerLogger())
		event := Event{EventType: EventTypeAnalysisRequested, Payload: json.RawMessage("not json")}

		err := handler.HandleEvent(context.Background(), event)

		assert.ErrorIs(t, err, ErrMalformedEvent)
	})
}
