package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownTelemetry(t *testing.T) {
	t.Run("should tolerate a missing shutdown function", func(t *testing.T) {
		assert.NotPanics(t, func() {
			shutdownTelemetry(nil)
		})
	})

	t.Run("should invoke the shutdown function with a deadline", func(t *testing.T) {
		called := false
		shutdownTelemetry(func(ctx context.Context) error {
			called = true
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		})
		assert.True(t, called)
	})

	t.Run("should absorb a shutdown error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			shutdownTelemetry(func(context.Context) error {
				return errors.New("exporter unreachable")
			})
		})
	})
}
