package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"trend-processor/domain"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Run("should not retry nil errors", func(t *testing.T) {
		assert.False(t, IsRetryable(nil))
	})

	t.Run("should not retry canceled contexts", func(t *testing.T) {
		assert.False(t, IsRetryable(context.Canceled))
	})

	t.Run("should retry deadline exceeded", func(t *testing.T) {
		assert.True(t, IsRetryable(context.DeadlineExceeded))
	})

	t.Run("should retry vendor outages and rate limits", func(t *testing.T) {
		assert.True(t, IsRetryable(domain.ErrServiceOverloaded))
		assert.True(t, IsRetryable(fmt.Errorf("%w: status 502", domain.ErrLLMUnavailable)))
		assert.True(t, IsRetryable(fmt.Errorf("%w: status 503", domain.ErrScraperUnavailable)))
	})

	t.Run("should not retry permanent errors", func(t *testing.T) {
		assert.False(t, IsRetryable(errors.New("chat request failed with status 400")))
		assert.False(t, IsRetryable(domain.ErrQueryCountMismatch))
	})
}
