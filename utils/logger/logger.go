// ABOUTME: This file provides the slog-based JSON logger for the trend-processor service
// ABOUTME: Emits lowercase level / msg / time fields for log-forwarder compatibility
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the process-wide logger. main overrides it at startup; the init
// below keeps it non-nil so tests and early code paths never panic.
var Logger *slog.Logger

func init() {
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))
	}
}

// Config holds logger configuration loaded from the environment.
type Config struct {
	Level       string `env:"LOG_LEVEL" default:"info"`
	ServiceName string `env:"SERVICE_NAME" default:"trend-processor"`
}

// LoadConfigFromEnv loads logger configuration from environment variables.
func LoadConfigFromEnv() *Config {
	return &Config{
		Level:       envOrDefault("LOG_LEVEL", "info"),
		ServiceName: envOrDefault("SERVICE_NAME", "trend-processor"),
	}
}

// New creates a JSON slog logger writing to stdout using cfg.
func New(cfg *Config) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter creates a JSON slog logger writing to the given writer.
func NewWithWriter(w io.Writer, cfg *Config) *slog.Logger {
	options := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				if level, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(level.String()))}
				}
				return a
			case slog.MessageKey:
				return slog.Attr{Key: "msg", Value: a.Value}
			default:
				return a
			}
		},
	}

	handler := slog.NewJSONHandler(w, options)

	return slog.New(handler).With("service", cfg.ServiceName, "version", "1.0.0")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
