// ABOUTME: This file provides HTTP request/response access logging middleware
// ABOUTME: Emits structured start and completion logs with timing information
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"trend-processor/utils/logger"
)

func LoggingMiddleware(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			start := time.Now()

			ctx := logger.WithOperation(req.Context(), req.Method+" "+req.URL.Path)
			c.SetRequest(req.WithContext(ctx))

			log := logger.FromContext(ctx, base)
			log.Info("request started",
				"method", req.Method,
				"path", req.URL.Path,
				"ip_address", c.RealIP(),
				"user_agent", req.UserAgent(),
			)

			err := next(c)

			log.Info("request completed",
				"log_type", "access",
				"method", req.Method,
				"path", req.URL.Path,
				"status_code", res.Status,
				"response_size", res.Size,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return err
		}
	}
}
