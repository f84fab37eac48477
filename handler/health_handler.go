package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// HealthHandler implementation.
type healthHandler struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *pgxpool.Pool, logger *slog.Logger) HealthHandler {
	return &healthHandler{
		db:     db,
		logger: logger,
	}
}

// CheckHealth checks the health of the service itself.
func (h *healthHandler) CheckHealth(ctx context.Context) error {
	return nil
}

// CheckDependencies checks the health of external dependencies.
func (h *healthHandler) CheckDependencies(ctx context.Context) error {
	if h.db == nil {
		return fmt.Errorf("database pool is not configured")
	}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// HandleHealth handles GET /health requests. Liveness only; dependency
// state is reported but never fails the probe.
func (h *healthHandler) HandleHealth(c echo.Context) error {
	ctx := c.Request().Context()

	deps := "healthy"
	if err := h.CheckDependencies(ctx); err != nil {
		deps = "unhealthy"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":       "healthy",
		"dependencies": deps,
	})
}
