package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrier_Do(t *testing.T) {
	t.Run("should return nil on first success", func(t *testing.T) {
		r := NewRetrier(testConfig(), nil, testLogger())
		calls := 0

		err := r.Do(context.Background(), func() error {
			calls++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("should retry transient failures until success", func(t *testing.T) {
		r := NewRetrier(testConfig(), nil, testLogger())
		calls := 0

		err := r.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("should give up after max attempts", func(t *testing.T) {
		r := NewRetrier(testConfig(), nil, testLogger())
		boom := errors.New("boom")
		calls := 0

		err := r.Do(context.Background(), func() error {
			calls++
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("should stop immediately on non-retryable error", func(t *testing.T) {
		permanent := errors.New("permanent")
		classifier := func(err error) bool { return !errors.Is(err, permanent) }
		r := NewRetrier(testConfig(), classifier, testLogger())
		calls := 0

		err := r.Do(context.Background(), func() error {
			calls++
			return permanent
		})

		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("should respect context cancellation between attempts", func(t *testing.T) {
		cfg := testConfig()
		cfg.BaseDelay = time.Second
		r := NewRetrier(cfg, nil, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := r.Do(ctx, func() error {
			calls++
			return errors.New("transient")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
