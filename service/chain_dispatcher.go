package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"trend-processor/config"
)

// PipelineTokenHeader authenticates stage-to-stage self-calls in place of a
// user JWT.
const PipelineTokenHeader = "X-Pipeline-Token"

const dispatchTimeout = 30 * time.Second

// ChainDispatcherService implementation. Each dispatch posts to this
// service's own HTTP API and deliberately does not wait for the stage to
// finish; the response is discarded as soon as the request is written. The
// chain of un-awaited calls is what moves a batch through its stages without
// a resident worker.
type chainDispatcher struct {
	client  *http.Client
	selfURL string
	token   string
	logger  *slog.Logger
}

// NewChainDispatcher creates a new chain dispatcher.
func NewChainDispatcher(cfg *config.Config, logger *slog.Logger) ChainDispatcherService {
	return &chainDispatcher{
		client:  &http.Client{Timeout: dispatchTimeout},
		selfURL: cfg.Pipeline.SelfURL,
		token:   cfg.Pipeline.WebhookSecret,
		logger:  logger,
	}
}

func (d *chainDispatcher) DispatchGeneration(batchID string) {
	d.dispatch("/api/v1/queries/generate", map[string]interface{}{"batch_id": batchID})
}

func (d *chainDispatcher) DispatchScrape(batchID string, queryIDs []string) {
	d.dispatch("/api/v1/videos/scrape", map[string]interface{}{
		"batch_id": batchID,
		"queries":  queryIDs,
	})
}

func (d *chainDispatcher) DispatchAnalysisChain(batchID string, videoIDs []string) {
	d.dispatch("/api/v1/videos/analyze", map[string]interface{}{
		"batch_id":  batchID,
		"video_ids": videoIDs,
	})
}

func (d *chainDispatcher) DispatchSynthesis(batchID string) {
	d.dispatch("/api/v1/recommendations/synthesize", map[string]interface{}{"batch_id": batchID})
}

// dispatch fires the self-call from a fresh goroutine with its own context.
// The caller's request context must not be used here: the caller returns
// immediately and its context dies with it.
func (d *chainDispatcher) dispatch(path string, payload map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := d.post(ctx, path, payload); err != nil {
			d.logger.Error("chain dispatch failed", "path", path, "error", err)
		}
	}()
}

func (d *chainDispatcher) post(ctx context.Context, path string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.selfURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(PipelineTokenHeader, d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("dispatch rejected with status %d", resp.StatusCode)
	}
	return nil
}
