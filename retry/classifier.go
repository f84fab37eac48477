// ABOUTME: This file classifies errors for retry decisions
// ABOUTME: Distinguishes transient vendor and network failures from permanent ones
package retry

import (
	"context"
	"errors"
	"net"
	"syscall"

	"trend-processor/domain"
)

// IsRetryable reports whether an error is worth another attempt. Canceled
// contexts and malformed requests never are; vendor outages, rate limits and
// flaky connections are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, domain.ErrServiceOverloaded) ||
		errors.Is(err, domain.ErrLLMUnavailable) ||
		errors.Is(err, domain.ErrScraperUnavailable) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errno, ok := opErr.Err.(syscall.Errno); ok {
			return errno == syscall.ECONNREFUSED ||
				errno == syscall.ECONNRESET ||
				errno == syscall.ETIMEDOUT
		}
		return opErr.Timeout()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
