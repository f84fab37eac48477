// ABOUTME: This file implements a JSON file-based dead letter store for poisoned stream events
// ABOUTME: Events that can never succeed are parked on disk instead of redelivering forever
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// FailedEventMessage is one dead-lettered stream event.
type FailedEventMessage struct {
	ID        string          `json:"id"`
	MessageID string          `json:"message_id"`
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

// Config holds dead letter store settings.
type Config struct {
	BasePath      string        `json:"base_path" env:"DLQ_BASE_PATH" default:"/var/dlq/trend-processor"`
	Retention     time.Duration `json:"retention" env:"DLQ_RETENTION" default:"720h"`
	EnableCleanup bool          `json:"enable_cleanup" env:"DLQ_ENABLE_CLEANUP" default:"true"`
}

// ConfigFromEnv reads DLQ_* environment variables with defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		BasePath:      "/var/dlq/trend-processor",
		Retention:     720 * time.Hour,
		EnableCleanup: true,
	}

	if v := os.Getenv("DLQ_BASE_PATH"); v != "" {
		cfg.BasePath = v
	}
	if v := os.Getenv("DLQ_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Retention = d
		}
	}
	if v := os.Getenv("DLQ_ENABLE_CLEANUP"); v != "" {
		cfg.EnableCleanup, _ = strconv.ParseBool(v)
	}

	return cfg
}

// Manager writes dead-lettered events to date-partitioned JSON files.
type Manager struct {
	config  Config
	counter uint64
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewManager creates a new dead letter store.
func NewManager(config Config, logger *slog.Logger) *Manager {
	return &Manager{
		config: config,
		logger: logger,
	}
}

// Record parks one event on disk. The write is atomic (temp file plus
// rename) so a crash never leaves a half-written message behind.
func (m *Manager) Record(ctx context.Context, messageID, eventID, eventType, source string, payload json.RawMessage, cause error) error {
	m.mu.Lock()
	m.counter++
	id := fmt.Sprintf("dlq_%s_%03d", time.Now().Format("20060102"), m.counter)
	m.mu.Unlock()

	message := FailedEventMessage{
		ID:        id,
		MessageID: messageID,
		EventID:   eventID,
		EventType: eventType,
		Source:    source,
		Payload:   payload,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	}

	if err := m.writeMessage(message); err != nil {
		m.logger.Error("failed to dead-letter event",
			"dlq_id", id,
			"message_id", messageID,
			"event_type", eventType,
			"error", err)
		return err
	}

	m.logger.Info("event dead-lettered",
		"dlq_id", id,
		"message_id", messageID,
		"event_type", eventType,
		"cause", cause.Error())

	return nil
}

func (m *Manager) writeMessage(message FailedEventMessage) error {
	dateDir := message.Timestamp.Format("2006-01-02")
	dir := filepath.Join(m.config.BasePath, "failed-events", dateDir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}

	body, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	targetPath := filepath.Join(dir, message.ID+".json")
	tempFile := targetPath + ".tmp"

	if err := os.WriteFile(tempFile, body, 0600); err != nil {
		return fmt.Errorf("write temp file failed: %w", err)
	}
	if err := os.Rename(tempFile, targetPath); err != nil {
		if cleanupErr := os.Remove(tempFile); cleanupErr != nil {
			m.logger.Error("failed to cleanup temp file", "temp_file", tempFile, "error", cleanupErr)
		}
		return fmt.Errorf("rename file failed: %w", err)
	}

	return nil
}

// StartCleanup removes dead-lettered events past retention once a day until
// the context is canceled. No-op when cleanup is disabled.
func (m *Manager) StartCleanup(ctx context.Context) {
	if !m.config.EnableCleanup {
		return
	}

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.cleanup(); err != nil {
					m.logger.Error("dead letter cleanup failed", "error", err)
				}
			}
		}
	}()
}

func (m *Manager) cleanup() error {
	root := filepath.Join(m.config.BasePath, "failed-events")
	cutoff := time.Now().Add(-m.config.Retention)

	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		day, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			continue
		}
		// A directory named for a day holds events up to the end of that
		// day, so it only expires once the whole day is past the cutoff.
		if day.Add(24 * time.Hour).Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
				m.logger.Error("failed to remove expired dead letter directory",
					"dir", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("expired dead letter directories removed", "count", removed)
	}

	return nil
}
