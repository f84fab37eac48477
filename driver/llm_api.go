package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/retry"
	"trend-processor/utils"
)

// LLMClient calls an OpenAI-compatible chat-completions API for both plain
// text and vision requests.
type LLMClient struct {
	cfg     *config.Config
	client  *utils.VendorClient
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewLLMClient creates a chat-completions client with rate limiting, a
// circuit breaker and backoff retries for transient vendor failures.
func NewLLMClient(cfg *config.Config, logger *slog.Logger) *LLMClient {
	client := utils.NewVendorClient(time.Second, cfg.LLM.Timeout, cfg.HTTP.UserAgent, logger).
		WithCircuitBreaker(3, 10*time.Second)

	return &LLMClient{
		cfg:     cfg,
		client:  client,
		retrier: retry.NewRetrier(retryConfig(cfg), retry.IsRetryable, logger),
		logger:  logger,
	}
}

func retryConfig(cfg *config.Config) retry.Config {
	return retry.Config{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		BaseDelay:     cfg.Retry.BaseDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		JitterFactor:  cfg.Retry.JitterFactor,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Complete sends a plain text prompt to the given model.
func (c *LLMClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	return c.send(ctx, chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
}

// CompleteVision sends a prompt with a media URL attachment to a
// vision-capable model.
func (c *LLMClient) CompleteVision(ctx context.Context, model, prompt, mediaURL string) (string, error) {
	return c.send(ctx, chatRequest{
		Model: model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURLPart{URL: mediaURL}},
				},
			},
		},
	})
}

func (c *LLMClient) send(ctx context.Context, payload chatRequest) (string, error) {
	if err := c.cfg.RequireLLMCredentials(); err != nil {
		return "", err
	}

	var content string
	err := c.retrier.Do(ctx, func() error {
		var sendErr error
		content, sendErr = c.sendOnce(ctx, payload)
		return sendErr
	})
	return content, err
}

func (c *LLMClient) sendOnce(ctx context.Context, payload chatRequest) (string, error) {

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.cfg.LLM.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.LLM.APIKey)

	c.logger.Debug("making chat-completions request", "model", payload.Model)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("chat request failed", "error", err, "model", payload.Model)
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", domain.ErrServiceOverloaded
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("chat API returned non-200 status",
			"status", resp.StatusCode,
			"model", payload.Model,
			"body", string(body))
		if resp.StatusCode >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: chat request failed with status %d", domain.ErrLLMUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("chat request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat response content is empty")
	}

	return content, nil
}
