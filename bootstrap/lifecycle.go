// ABOUTME: This file drives the application lifecycle from startup to shutdown
// ABOUTME: Initializes telemetry and logging, starts the server and jobs, waits for signals
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "trend-processor/utils/logger"
	"trend-processor/utils/otel"
)

// Run is the main application entry point. It initializes all dependencies,
// starts the server and background jobs, then waits for a shutdown signal.
func Run(ctx context.Context) error {
	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("failed to initialize opentelemetry: %v\n", err)
		otelCfg.Enabled = false
	}
	defer shutdownTelemetry(otelShutdown)

	// Initialize logger
	log := logger.New(logger.LoadConfigFromEnv())
	logger.Logger = log

	log.Info("starting trend-processor service",
		"otel_enabled", otelCfg.Enabled,
		"service", otelCfg.ServiceName)

	// Build all dependencies
	deps, cleanup, err := BuildDependencies(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer cleanup()
	defer func() {
		if deps.RedisConsumer != nil {
			deps.RedisConsumer.Stop()
		}
	}()

	// Start the HTTP server
	httpServer := NewHTTPServer(deps, otelCfg.Enabled, otelCfg.ServiceName)
	StartHTTPServer(httpServer, deps, log)

	// Start background jobs
	if err := startJobs(ctx, deps, log); err != nil {
		return fmt.Errorf("failed to start jobs: %w", err)
	}

	// Wait for shutdown signal
	log.Info("trend-processor service started")
	waitForShutdown(httpServer, deps, log)

	return nil
}

// shutdownTelemetry flushes the trace provider. A failed InitProvider
// returns no shutdown function, so nil must be tolerated here.
func shutdownTelemetry(shutdown func(context.Context) error) {
	if shutdown == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		fmt.Printf("failed to shutdown opentelemetry: %v\n", err)
	}
}

func startJobs(ctx context.Context, deps *Dependencies, log *slog.Logger) error {
	log.Info("starting background jobs")

	// The stale sweep runs on the same budget that decides when a processing
	// video counts as stuck, so a dead dispatch is rewritten within roughly
	// one budget interval even if nobody polls it.
	sweepInterval := deps.Config.Pipeline.StuckAfter
	if err := deps.Scheduler.Schedule(ctx, "stale-analysis-sweep", sweepInterval, func() error {
		swept, err := deps.StatusChecker.SweepStale(ctx)
		if err != nil {
			return err
		}
		if swept > 0 {
			log.Info("stale analysis sweep rewrote videos", "count", swept)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to schedule stale sweep: %w", err)
	}

	// The drain picks up scraped videos whose analysis hand-off was lost
	// before any consumer ever saw it, so they still get re-dispatched.
	if err := deps.Scheduler.Schedule(ctx, "pending-analysis-drain", sweepInterval, func() error {
		drained, err := deps.Pipeline.DrainPending(ctx)
		if err != nil {
			return err
		}
		if drained > 0 {
			log.Info("pending analysis drain re-dispatched videos", "count", drained)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to schedule pending drain: %w", err)
	}

	// Non-fatal dependency health check
	if err := deps.HealthHandler.CheckDependencies(ctx); err != nil {
		log.Warn("some dependencies are not healthy", "error", err)
	}

	return nil
}

func waitForShutdown(httpServer interface{ Shutdown(context.Context) error }, deps *Dependencies, log *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down trend-processor service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down http server", "error", err)
	}

	if err := deps.Scheduler.StopAll(); err != nil {
		log.Error("error stopping background jobs", "error", err)
	}

	log.Info("trend-processor service stopped")
}
