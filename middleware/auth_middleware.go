// ABOUTME: This file handles authentication middleware for the trend-processor service
// ABOUTME: It verifies user JWTs and the shared token used by stage self-calls
package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"trend-processor/config"
	"trend-processor/service"
)

type ownerContextKey struct{}

// OwnerIDFromContext returns the authenticated owner ID, or empty string for
// pipeline-token requests.
func OwnerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ownerContextKey{}).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware verifies requests on the protected API group. Two
// credentials are accepted: a user JWT in the Authorization header, or the
// shared pipeline token that the chain dispatcher sends on stage self-calls.
type AuthMiddleware struct {
	jwtSecret     []byte
	pipelineToken string
	logger        *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(cfg *config.Config, logger *slog.Logger) (*AuthMiddleware, error) {
	if cfg.Auth.JWTSecret == "" {
		logger.Error("AUTH_JWT_SECRET environment variable is required")
		return nil, fmt.Errorf("AUTH_JWT_SECRET environment variable is required")
	}

	return &AuthMiddleware{
		jwtSecret:     []byte(cfg.Auth.JWTSecret),
		pipelineToken: cfg.Pipeline.WebhookSecret,
		logger:        logger,
	}, nil
}

// RequireAuth returns the echo middleware enforcing authentication.
func (m *AuthMiddleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.isPipelineCall(c) {
				return next(c)
			}

			ownerID, err := m.verifyJWT(c)
			if err != nil {
				m.logger.Warn("authentication failed", "error", err, "path", c.Request().URL.Path)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing credentials")
			}

			ctx := context.WithValue(c.Request().Context(), ownerContextKey{}, ownerID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// isPipelineCall checks the shared-secret header used by stage self-calls.
func (m *AuthMiddleware) isPipelineCall(c echo.Context) bool {
	if m.pipelineToken == "" {
		return false
	}
	token := c.Request().Header.Get(service.PipelineTokenHeader)
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.pipelineToken)) == 1
}

func (m *AuthMiddleware) verifyJWT(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}

	ownerID, err := claims.GetSubject()
	if err != nil || ownerID == "" {
		return "", fmt.Errorf("token carries no subject")
	}

	return ownerID, nil
}
