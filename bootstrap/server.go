// ABOUTME: This file builds and starts the Echo HTTP server for the pipeline API
// ABOUTME: Installs tracing, request logging, auth and the route table
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	appmiddleware "trend-processor/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const httpPort = "9300"

// NewHTTPServer creates and configures the Echo HTTP server.
func NewHTTPServer(deps *Dependencies, otelEnabled bool, otelServiceName string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Custom error handler for consistent error responses
	e.HTTPErrorHandler = appmiddleware.CustomHTTPErrorHandler(deps.Logger)

	// Add OpenTelemetry tracing middleware
	if otelEnabled {
		e.Use(otelecho.Middleware(otelServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	// Middleware
	e.Use(appmiddleware.RequestIDMiddleware())
	e.Use(appmiddleware.LoggingMiddleware(deps.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Unauthenticated surface: health probe and the external analyzer callback.
	e.GET("/health", deps.HealthHandler.HandleHealth)
	e.POST("/webhook/analysis", deps.WebhookHandler.HandleAnalysisResult)

	// API routes. Every route accepts a user bearer token; the stage hand-off
	// routes are also reachable with the internal pipeline token.
	api := e.Group("/api/v1", deps.AuthMiddleware.RequireAuth())
	api.POST("/pipeline/start", deps.PipelineHandler.HandleStartPipeline)
	api.POST("/pipeline/enqueue", deps.QueueHandler.HandleEnqueue)
	api.POST("/queries/generate", deps.PipelineHandler.HandleGenerateQueries)
	api.POST("/videos/scrape", deps.PipelineHandler.HandleScrapeVideos)
	api.POST("/videos/analyze", deps.PipelineHandler.HandleAnalyzeVideos)
	api.POST("/recommendations/synthesize", deps.PipelineHandler.HandleSynthesize)
	api.GET("/videos/:id/status", deps.PipelineHandler.HandleVideoStatus)
	api.GET("/videos/:id/wait", deps.PipelineHandler.HandleVideoWait)
	api.GET("/pipeline/status/:batch_id", deps.PipelineHandler.HandleBatchStatus)

	return e
}

// StartHTTPServer starts the HTTP server in a goroutine.
func StartHTTPServer(e *echo.Echo, deps *Dependencies, log *slog.Logger) {
	go func() {
		port := os.Getenv("HTTP_PORT")
		if port == "" {
			port = fmt.Sprintf("%d", deps.Config.Server.Port)
		}
		if port == "0" {
			port = httpPort
		}
		addr := fmt.Sprintf(":%s", port)
		log.Info("starting http server", "port", port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
		}
	}()
}
