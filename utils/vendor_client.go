// ABOUTME: This file implements a rate-limited HTTP client for vendor API calls
// ABOUTME: Enforces minimum request intervals with jitter and circuit breaker integration
package utils

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// VendorClient wraps an http.Client with a minimum inter-request interval and
// an optional circuit breaker. Both scraper and LLM drivers share this shape.
type VendorClient struct {
	client    *http.Client
	breaker   *CircuitBreaker
	logger    *slog.Logger
	userAgent string

	interval    time.Duration
	lastRequest time.Time
	mu          sync.Mutex
}

// NewVendorClient creates a rate-limited vendor HTTP client.
func NewVendorClient(interval, timeout time.Duration, userAgent string, logger *slog.Logger) *VendorClient {
	return &VendorClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:    logger,
		userAgent: userAgent,
		interval:  interval,
	}
}

// WithCircuitBreaker attaches a breaker tripping after threshold consecutive
// failures with the given cool-off.
func (c *VendorClient) WithCircuitBreaker(threshold int, timeout time.Duration) *VendorClient {
	c.breaker = NewCircuitBreaker(threshold, timeout)
	return c
}

// Do sends the request after waiting out the rate-limit interval. 5xx
// responses count as breaker failures; the response is still returned to the
// caller for status handling.
func (c *VendorClient) Do(req *http.Request) (*http.Response, error) {
	c.wait()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("making vendor request", "method", req.Method, "url", req.URL.String())

	var resp *http.Response
	var err error

	if c.breaker != nil {
		callErr := c.breaker.Call(func() error {
			resp, err = c.client.Do(req)
			if err != nil {
				return err
			}
			if resp.StatusCode >= 500 {
				return fmt.Errorf("server error: %d", resp.StatusCode)
			}
			return nil
		})
		if callErr != nil && resp == nil {
			return nil, callErr
		}
		return resp, nil
	}

	return c.client.Do(req)
}

// wait blocks until the minimum interval (plus up to 20% jitter) has elapsed
// since the previous request.
func (c *VendorClient) wait() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interval <= 0 {
		c.lastRequest = time.Now()
		return
	}

	jitter := time.Duration(randomFraction(0.2) * float64(c.interval))
	waitTime := c.interval + jitter

	if elapsed := time.Since(c.lastRequest); elapsed < waitTime {
		time.Sleep(waitTime - elapsed)
	}
	c.lastRequest = time.Now()
}

// DoWithContext is a convenience that rebinds the request to ctx before sending.
func (c *VendorClient) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

// randomFraction returns a random float64 in [0, max). It uses crypto/rand to
// avoid gosec G404 warnings; on failure it returns 0.
func randomFraction(max float64) float64 {
	const precision = 1_000_000
	n, err := crand.Int(crand.Reader, big.NewInt(precision))
	if err != nil {
		return 0
	}
	return (float64(n.Int64()) / precision) * max
}
