package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"trend-processor/utils/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Init builds the pgx connection pool from environment variables and verifies
// connectivity with a ping.
func Init(ctx context.Context) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("TREND_PROCESSOR_DB_USER", "trend_processor"),
		os.Getenv("TREND_PROCESSOR_DB_PASSWORD"),
		envOr("DB_NAME", "trends"),
		envOr("DB_SSL_MODE", "disable"))

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Logger.Error("Failed to parse database config", "error", err)
		return nil, err
	}

	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	dbPool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Logger.Error("Failed to connect to database", "error", err)
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := dbPool.Ping(pingCtx); err != nil {
		dbPool.Close()
		logger.Logger.Error("Failed to ping database", "error", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Logger.Info("Database connection pool initialized",
		"max_conns", config.MaxConns,
		"min_conns", config.MinConns)

	return dbPool, nil
}

func envOr(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
