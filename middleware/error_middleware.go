// ABOUTME: Centralized error handling middleware for Echo framework
// ABOUTME: Maps domain errors to HTTP statuses and hides internal details
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"trend-processor/domain"
	"trend-processor/utils/logger"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// CustomHTTPErrorHandler creates the centralized HTTP error handler for Echo.
//
// Error handling priority:
// 1. Domain sentinel errors - mapped to their HTTP status with the domain message
// 2. echo.HTTPError - preserves Echo's error format
// 3. Unknown errors - returns generic 500 response to hide internal details
func CustomHTTPErrorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := logger.FromContext(c.Request().Context(), base)

		status, response := classifyError(err)

		if status >= http.StatusInternalServerError {
			log.Error("request failed", "status", status, "error", err)
		} else {
			log.Warn("request rejected", "status", status, "error", err)
		}

		if writeErr := c.JSON(status, response); writeErr != nil {
			log.Error("failed to send error response", "error", writeErr)
		}
	}
}

func classifyError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrBatchNotFound),
		errors.Is(err, domain.ErrVideoNotFound),
		errors.Is(err, domain.ErrQueryNotFound),
		errors.Is(err, domain.ErrRecommendationNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}

	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrMissingBusinessDescription),
		errors.Is(err, domain.ErrMissingOwner):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}

	case errors.Is(err, domain.ErrServiceOverloaded):
		return http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), Retryable: true}

	case errors.Is(err, domain.ErrScraperUnavailable),
		errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusBadGateway, ErrorResponse{Error: err.Error(), Retryable: true}

	case errors.Is(err, domain.ErrPollBudgetExhausted):
		return http.StatusGatewayTimeout, ErrorResponse{Error: err.Error(), Retryable: true}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := "an error occurred"
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
		if httpErr.Code >= http.StatusInternalServerError {
			msg = "an unexpected error occurred, please try again later"
		}
		return httpErr.Code, ErrorResponse{Error: msg, Retryable: httpErr.Code >= http.StatusInternalServerError}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: "an unexpected error occurred, please try again later",
	}
}
