// ABOUTME: This file implements configuration management with environment variable support
// ABOUTME: Provides validation, defaults, and fail-fast checks for required vendor credentials
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	HTTP     HTTPConfig     `json:"http"`
	Retry    RetryConfig    `json:"retry"`
	Scraper  ScraperConfig  `json:"scraper"`
	LLM      LLMConfig      `json:"llm"`
	Pipeline PipelineConfig `json:"pipeline"`
	Auth     AuthConfig     `json:"auth"`
}

type ServerConfig struct {
	Port            int           `json:"port" env:"SERVER_PORT" default:"9300"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"300s"` // Extended to allow LLM processing
}

type HTTPConfig struct {
	Timeout             time.Duration `json:"timeout" env:"HTTP_TIMEOUT" default:"30s"`
	MaxIdleConns        int           `json:"max_idle_conns" env:"HTTP_MAX_IDLE_CONNS" default:"10"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host" env:"HTTP_MAX_IDLE_CONNS_PER_HOST" default:"2"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout" env:"HTTP_IDLE_CONN_TIMEOUT" default:"90s"`
	UserAgent           string        `json:"user_agent" env:"HTTP_USER_AGENT" default:"trend-processor/1.0"`
}

type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" env:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay     time.Duration `json:"base_delay" env:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay      time.Duration `json:"max_delay" env:"RETRY_MAX_DELAY" default:"30s"`
	BackoffFactor float64       `json:"backoff_factor" env:"RETRY_BACKOFF_FACTOR" default:"2.0"`
	JitterFactor  float64       `json:"jitter_factor" env:"RETRY_JITTER_FACTOR" default:"0.1"`
}

type ScraperConfig struct {
	BaseURL      string        `json:"base_url" env:"SCRAPER_API_URL" default:"https://tiktok-scraper7.p.rapidapi.com"`
	APIKey       string        `json:"-" env:"SCRAPER_API_KEY"`
	Region       string        `json:"region" env:"SCRAPER_REGION" default:"US"`
	RequestCount int           `json:"request_count" env:"SCRAPER_REQUEST_COUNT" default:"20"`
	KeepCount    int           `json:"keep_count" env:"SCRAPER_KEEP_COUNT" default:"5"`
	Timeout      time.Duration `json:"timeout" env:"SCRAPER_TIMEOUT" default:"60s"`
}

type LLMConfig struct {
	BaseURL          string        `json:"base_url" env:"LLM_API_URL" default:"https://openrouter.ai/api/v1"`
	APIKey           string        `json:"-" env:"LLM_API_KEY"`
	TextModel        string        `json:"text_model" env:"LLM_TEXT_MODEL" default:"meta-llama/llama-3.3-70b-instruct"`
	VisionModel      string        `json:"vision_model" env:"LLM_VISION_MODEL" default:"qwen/qwen2.5-vl-72b-instruct"`
	Timeout          time.Duration `json:"timeout" env:"LLM_TIMEOUT" default:"240s"` // Extended for vision processing
	MinContentLength int           `json:"min_content_length" env:"ANALYSIS_MIN_CONTENT_LENGTH" default:"50"`
}

type PipelineConfig struct {
	// SelfURL is the base URL the chain dispatcher posts hand-offs back to.
	SelfURL        string        `json:"self_url" env:"PIPELINE_SELF_URL" default:"http://localhost:9300"`
	StuckAfter     time.Duration `json:"stuck_after" env:"PIPELINE_STUCK_AFTER" default:"5m"`
	PollInterval   time.Duration `json:"poll_interval" env:"PIPELINE_POLL_INTERVAL" default:"5s"`
	PollBudget     time.Duration `json:"poll_budget" env:"PIPELINE_POLL_BUDGET" default:"5m"`
	DefaultQueries int           `json:"default_queries" env:"PIPELINE_DEFAULT_QUERIES" default:"5"`
	MaxQueries     int           `json:"max_queries" env:"PIPELINE_MAX_QUERIES" default:"10"`
	SynthesisCap   int           `json:"synthesis_cap" env:"PIPELINE_SYNTHESIS_CAP" default:"20"`
	MaxRetries     int           `json:"max_retries" env:"PIPELINE_MAX_RETRIES" default:"3"`
	WebhookSecret  string        `json:"-" env:"WEBHOOK_SHARED_SECRET"`
}

type AuthConfig struct {
	JWTSecret string `json:"-" env:"AUTH_JWT_SECRET"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func loadFromEnv(config *Config) error {
	var err error

	// Server config
	if config.Server.Port, err = envInt("SERVER_PORT", 9300); err != nil {
		return err
	}
	if config.Server.ShutdownTimeout, err = envDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return err
	}
	if config.Server.ReadTimeout, err = envDuration("SERVER_READ_TIMEOUT", 10*time.Second); err != nil {
		return err
	}
	if config.Server.WriteTimeout, err = envDuration("SERVER_WRITE_TIMEOUT", 300*time.Second); err != nil {
		return err
	}

	// HTTP config
	if config.HTTP.Timeout, err = envDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return err
	}
	if config.HTTP.MaxIdleConns, err = envInt("HTTP_MAX_IDLE_CONNS", 10); err != nil {
		return err
	}
	if config.HTTP.MaxIdleConnsPerHost, err = envInt("HTTP_MAX_IDLE_CONNS_PER_HOST", 2); err != nil {
		return err
	}
	if config.HTTP.IdleConnTimeout, err = envDuration("HTTP_IDLE_CONN_TIMEOUT", 90*time.Second); err != nil {
		return err
	}
	config.HTTP.UserAgent = envString("HTTP_USER_AGENT", "trend-processor/1.0")

	// Retry config
	if config.Retry.MaxAttempts, err = envInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return err
	}
	if config.Retry.BaseDelay, err = envDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return err
	}
	if config.Retry.MaxDelay, err = envDuration("RETRY_MAX_DELAY", 30*time.Second); err != nil {
		return err
	}
	if config.Retry.BackoffFactor, err = envFloat("RETRY_BACKOFF_FACTOR", 2.0); err != nil {
		return err
	}
	if config.Retry.JitterFactor, err = envFloat("RETRY_JITTER_FACTOR", 0.1); err != nil {
		return err
	}

	// Scraper config
	config.Scraper.BaseURL = envString("SCRAPER_API_URL", "https://tiktok-scraper7.p.rapidapi.com")
	config.Scraper.APIKey = os.Getenv("SCRAPER_API_KEY")
	config.Scraper.Region = envString("SCRAPER_REGION", "US")
	if config.Scraper.RequestCount, err = envInt("SCRAPER_REQUEST_COUNT", 20); err != nil {
		return err
	}
	if config.Scraper.KeepCount, err = envInt("SCRAPER_KEEP_COUNT", 5); err != nil {
		return err
	}
	if config.Scraper.Timeout, err = envDuration("SCRAPER_TIMEOUT", 60*time.Second); err != nil {
		return err
	}

	// LLM config
	config.LLM.BaseURL = envString("LLM_API_URL", "https://openrouter.ai/api/v1")
	config.LLM.APIKey = os.Getenv("LLM_API_KEY")
	config.LLM.TextModel = envString("LLM_TEXT_MODEL", "meta-llama/llama-3.3-70b-instruct")
	config.LLM.VisionModel = envString("LLM_VISION_MODEL", "qwen/qwen2.5-vl-72b-instruct")
	if config.LLM.Timeout, err = envDuration("LLM_TIMEOUT", 240*time.Second); err != nil {
		return err
	}
	if config.LLM.MinContentLength, err = envInt("ANALYSIS_MIN_CONTENT_LENGTH", 50); err != nil {
		return err
	}

	// Pipeline config
	config.Pipeline.SelfURL = envString("PIPELINE_SELF_URL", "http://localhost:9300")
	if config.Pipeline.StuckAfter, err = envDuration("PIPELINE_STUCK_AFTER", 5*time.Minute); err != nil {
		return err
	}
	if config.Pipeline.PollInterval, err = envDuration("PIPELINE_POLL_INTERVAL", 5*time.Second); err != nil {
		return err
	}
	if config.Pipeline.PollBudget, err = envDuration("PIPELINE_POLL_BUDGET", 5*time.Minute); err != nil {
		return err
	}
	if config.Pipeline.DefaultQueries, err = envInt("PIPELINE_DEFAULT_QUERIES", 5); err != nil {
		return err
	}
	if config.Pipeline.MaxQueries, err = envInt("PIPELINE_MAX_QUERIES", 10); err != nil {
		return err
	}
	if config.Pipeline.SynthesisCap, err = envInt("PIPELINE_SYNTHESIS_CAP", 20); err != nil {
		return err
	}
	if config.Pipeline.MaxRetries, err = envInt("PIPELINE_MAX_RETRIES", 3); err != nil {
		return err
	}
	config.Pipeline.WebhookSecret = os.Getenv("WEBHOOK_SHARED_SECRET")

	// Auth config
	config.Auth.JWTSecret = os.Getenv("AUTH_JWT_SECRET")

	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Scraper.RequestCount <= 0 {
		return fmt.Errorf("scraper request count must be positive: %d", config.Scraper.RequestCount)
	}
	if config.Scraper.KeepCount <= 0 || config.Scraper.KeepCount > config.Scraper.RequestCount {
		return fmt.Errorf("scraper keep count must be in 1..request_count: %d", config.Scraper.KeepCount)
	}

	if config.Pipeline.DefaultQueries <= 0 || config.Pipeline.DefaultQueries > config.Pipeline.MaxQueries {
		return fmt.Errorf("default query count must be in 1..max_queries: %d", config.Pipeline.DefaultQueries)
	}
	if config.Pipeline.SynthesisCap <= 0 {
		return fmt.Errorf("synthesis cap must be positive: %d", config.Pipeline.SynthesisCap)
	}
	if config.Pipeline.StuckAfter <= 0 {
		return fmt.Errorf("stuck-after budget must be positive: %s", config.Pipeline.StuckAfter)
	}

	if config.LLM.MinContentLength < 0 {
		return fmt.Errorf("minimum analysis content length cannot be negative: %d", config.LLM.MinContentLength)
	}

	return nil
}

// RequireScraperCredentials fails fast when the video search API is not configured.
func (c *Config) RequireScraperCredentials() error {
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("SCRAPER_API_URL is not configured")
	}
	if c.Scraper.APIKey == "" {
		return fmt.Errorf("SCRAPER_API_KEY is not configured")
	}
	return nil
}

// RequireLLMCredentials fails fast when the language model API is not configured.
func (c *Config) RequireLLMCredentials() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM_API_URL is not configured")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is not configured")
	}
	return nil
}

func envString(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

func envInt(key string, def int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}

func envFloat(key string, def float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}
