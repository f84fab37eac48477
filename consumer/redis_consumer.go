// Package consumer provides the Redis Streams task queue for trend-processor.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds queue configuration.
type Config struct {
	// RedisURL is the Redis connection URL.
	RedisURL string
	// GroupName is the consumer group name.
	GroupName string
	// ConsumerName is this consumer's name within the group.
	ConsumerName string
	// StreamKey is the Redis Stream key to consume from.
	StreamKey string
	// BatchSize is the number of messages to read at once.
	BatchSize int64
	// BlockTimeout is how long to block waiting for messages.
	BlockTimeout time.Duration
	// ClaimIdleTime is how long a delivered message may sit unacknowledged
	// before another consumer claims and reprocesses it.
	ClaimIdleTime time.Duration
	// Enabled determines if the queue is active. When disabled the chain
	// dispatcher is the only delivery path.
	Enabled bool
}

// DefaultConfig returns a default queue configuration.
func DefaultConfig() Config {
	return Config{
		RedisURL:      "redis://localhost:6379",
		GroupName:     "trend-processor-group",
		ConsumerName:  "trend-processor-1",
		StreamKey:     "trends:events:pipeline",
		BatchSize:     10,
		BlockTimeout:  5 * time.Second,
		ClaimIdleTime: time.Minute,
		Enabled:       false,
	}
}

// ConfigFromEnv loads queue configuration from the environment.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("QUEUE_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("QUEUE_GROUP_NAME"); v != "" {
		cfg.GroupName = v
	}
	if v := os.Getenv("QUEUE_CONSUMER_NAME"); v != "" {
		cfg.ConsumerName = v
	}
	if v := os.Getenv("QUEUE_STREAM_KEY"); v != "" {
		cfg.StreamKey = v
	}
	if v := os.Getenv("QUEUE_CLAIM_IDLE_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ClaimIdleTime = d
		}
	}
	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	return cfg
}

// Event represents one task from the stream.
type Event struct {
	// MessageID is the Redis Stream message ID.
	MessageID string
	// EventID is the unique event identifier.
	EventID string
	// EventType is the type of event.
	EventType string
	// Source is the service that produced the event.
	Source string
	// CreatedAt is when the event was created.
	CreatedAt time.Time
	// Payload is the event-specific data.
	Payload json.RawMessage
}

// EventHandler processes events from the stream.
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
}

// DeadLetterer parks events that can never succeed.
type DeadLetterer interface {
	Record(ctx context.Context, messageID, eventID, eventType, source string, payload json.RawMessage, cause error) error
}

// Consumer consumes pipeline tasks from Redis Streams. Messages are ACKed
// only after the handler succeeds, so a crashed consumer leaves its tasks
// pending for redelivery.
type Consumer struct {
	client       *redis.Client
	config       Config
	handler      EventHandler
	deadLetters  DeadLetterer
	logger       *slog.Logger
	shutdownChan chan struct{}
}

// NewConsumer creates a new Redis Streams consumer.
func NewConsumer(config Config, handler EventHandler, logger *slog.Logger) (*Consumer, error) {
	if !config.Enabled {
		return &Consumer{config: config, logger: logger}, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		client:       redis.NewClient(opts),
		config:       config,
		handler:      handler,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}, nil
}

// WithDeadLetters installs a dead letter store. Events whose failure is
// terminal are parked there and ACKed instead of redelivering forever.
func (c *Consumer) WithDeadLetters(dl DeadLetterer) *Consumer {
	c.deadLetters = dl
	return c
}

// Start begins consuming tasks from the stream.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.config.Enabled {
		c.logger.Info("task queue disabled, not starting consumer")
		return nil
	}

	if err := c.ensureConsumerGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("starting task queue consumer",
		"stream", c.config.StreamKey,
		"group", c.config.GroupName,
		"consumer", c.config.ConsumerName,
	)

	go c.consumeLoop(ctx)
	return nil
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() {
	if c.shutdownChan != nil {
		close(c.shutdownChan)
	}
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Consumer) ensureConsumerGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.config.StreamKey, c.config.GroupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	claimTicker := time.NewTicker(c.config.ClaimIdleTime)
	defer claimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer context cancelled, stopping")
			return
		case <-c.shutdownChan:
			c.logger.Info("consumer shutdown requested, stopping")
			return
		case <-claimTicker.C:
			if err := c.claimAndProcess(ctx); err != nil {
				c.logger.Error("error reclaiming pending tasks", "error", err)
			}
		default:
			if err := c.readAndProcess(ctx); err != nil {
				c.logger.Error("error processing tasks", "error", err)
				time.Sleep(time.Second) // Back off on error
			}
		}
	}
}

// readAndProcess reads a batch of tasks and runs the handler over each.
// Failed tasks are not ACKed and stay pending for redelivery.
func (c *Consumer) readAndProcess(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.GroupName,
		Consumer: c.config.ConsumerName,
		Streams:  []string{c.config.StreamKey, ">"},
		Count:    c.config.BatchSize,
		Block:    c.config.BlockTimeout,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			c.processMessage(ctx, message)
		}
	}

	return nil
}

// claimAndProcess takes over messages another consumer read but never ACKed.
// This is the redelivery half of at-least-once: a consumer that died between
// read and ACK leaves its messages in the pending entries list, and they are
// claimed here once they have been idle past ClaimIdleTime.
func (c *Consumer) claimAndProcess(ctx context.Context) error {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.config.StreamKey,
		Group:    c.config.GroupName,
		Consumer: c.config.ConsumerName,
		MinIdle:  c.config.ClaimIdleTime,
		Start:    "0-0",
		Count:    c.config.BatchSize,
	}).Result()
	if err != nil {
		return err
	}

	for _, message := range messages {
		c.logger.Info("claimed abandoned task", "message_id", message.ID)
		c.processMessage(ctx, message)
	}

	return nil
}

// processMessage runs the handler over one message and ACKs it on success.
// Malformed events are parked in the dead letter store and ACKed too, since
// redelivering them can never succeed.
func (c *Consumer) processMessage(ctx context.Context, message redis.XMessage) {
	event := c.parseEvent(message)

	if err := c.handler.HandleEvent(ctx, event); err != nil {
		if !errors.Is(err, ErrMalformedEvent) || !c.deadLetter(ctx, event, err) {
			c.logger.Error("failed to process task",
				"message_id", message.ID,
				"event_type", event.EventType,
				"error", err,
			)
			return
		}
	}

	if err := c.client.XAck(ctx, c.config.StreamKey, c.config.GroupName, message.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge task",
			"message_id", message.ID,
			"error", err,
		)
	}
}

// deadLetter parks a poisoned event and reports whether it was recorded.
// A recorded event is safe to ACK; retrying it can never succeed.
func (c *Consumer) deadLetter(ctx context.Context, event Event, cause error) bool {
	if c.deadLetters == nil {
		return false
	}
	if err := c.deadLetters.Record(ctx, event.MessageID, event.EventID, event.EventType, event.Source, event.Payload, cause); err != nil {
		return false
	}
	return true
}

func (c *Consumer) parseEvent(message redis.XMessage) Event {
	event := Event{MessageID: message.ID}

	if v, ok := message.Values["event_id"].(string); ok {
		event.EventID = v
	}
	if v, ok := message.Values["event_type"].(string); ok {
		event.EventType = v
	}
	if v, ok := message.Values["source"].(string); ok {
		event.Source = v
	}
	if v, ok := message.Values["created_at"].(string); ok {
		event.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	if v, ok := message.Values["payload"].(string); ok {
		event.Payload = json.RawMessage(v)
	}

	return event
}

// Publisher appends pipeline tasks to the stream.
type Publisher struct {
	client *redis.Client
	config Config
	logger *slog.Logger
}

// NewPublisher creates a new task publisher. A disabled config yields a
// no-op publisher so callers never need to branch.
func NewPublisher(config Config, logger *slog.Logger) (*Publisher, error) {
	if !config.Enabled {
		return &Publisher{config: config, logger: logger}, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}, nil
}

// Publish appends one event to the stream.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if !p.config.Enabled {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.config.StreamKey,
		Values: map[string]interface{}{
			"event_id":   uuid.NewString(),
			"event_type": eventType,
			"source":     "trend-processor",
			"created_at": time.Now().UTC().Format(time.RFC3339),
			"payload":    string(body),
		},
	}).Err()
	if err != nil {
		p.logger.Error("failed to publish task", "event_type", eventType, "error", err)
		return err
	}

	return nil
}

// Close releases the publisher's connection.
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
