// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultEnvironment is the environment name used when ENVIRONMENT is unset.
const DefaultEnvironment = "dev"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Testing     bool             `mapstructure:"testing"`
	DatabaseURL string           `mapstructure:"database_url"`
	Server      ServerConfig     `mapstructure:"server"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Worker      WorkerConfig     `mapstructure:"worker"`
	Queue       QueueConfig      `mapstructure:"queue"`
	Fetch       FetchConfig      `mapstructure:"fetch"`
	Storage     StorageConfig    `mapstructure:"storage"`
	PubSub      PubSubConfig     `mapstructure:"pubsub"`
	Summarizer  SummarizerConfig `mapstructure:"summarizer"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// WorkerConfig governs the background summarization pool.
type WorkerConfig struct {
	Concurrency      int `mapstructure:"concurrency"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// QueueConfig selects the task queue backend.
type QueueConfig struct {
	Backend   string `mapstructure:"backend"`
	Depth     int    `mapstructure:"depth"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
}

// FetchConfig configures article retrieval.
type FetchConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	RespectRobots      bool   `mapstructure:"respect_robots"`
	HeadlessEnabled    bool   `mapstructure:"headless_enabled"`
	HeadlessMinText    int    `mapstructure:"headless_min_text"`
	HeadlessMaxPar     int    `mapstructure:"headless_max_parallel"`
	HeadlessNavTimeout int    `mapstructure:"headless_nav_timeout_seconds"`
	// HeadlessPromotionBytes is the visible text size below which a page
	// showing client-side rendering signs is rendered in headless Chrome.
	HeadlessPromotionBytes int     `mapstructure:"headless_promotion_bytes"`
	PerHostRPS             float64 `mapstructure:"per_host_rps"`
	PerHostBurst           int     `mapstructure:"per_host_burst"`
}

// StorageConfig sets where raw article HTML is archived.
type StorageConfig struct {
	GCSBucket   string `mapstructure:"gcs_bucket"`
	LocalDir    string `mapstructure:"local_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// SummarizerConfig tunes the extractive summarizer.
type SummarizerConfig struct {
	Sentences     int `mapstructure:"sentences"`
	MaxInputBytes int `mapstructure:"max_input_bytes"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("testing", false)
	v.SetDefault("database_url", "")
	v.SetDefault("server.port", 8004)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("logging.development", true)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.backoff_initial_ms", 250)
	v.SetDefault("worker.backoff_max_ms", 5000)
	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.depth", 64)
	v.SetDefault("queue.redis_addr", "")
	v.SetDefault("queue.redis_key", "queue:summaries")
	v.SetDefault("fetch.user_agent", "article-summaries/1.0")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.headless_enabled", false)
	v.SetDefault("fetch.headless_min_text", 200)
	v.SetDefault("fetch.headless_max_parallel", 1)
	v.SetDefault("fetch.headless_nav_timeout_seconds", 45)
	v.SetDefault("fetch.headless_promotion_bytes", 2048)
	v.SetDefault("fetch.per_host_rps", 1.0)
	v.SetDefault("fetch.per_host_burst", 2)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.prefix", "articles")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("summarizer.sentences", 5)
	v.SetDefault("summarizer.max_input_bytes", 200000)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Environment != DefaultEnvironment && c.DatabaseURL == "" {
		return fmt.Errorf("database_url must be set when environment is %q", c.Environment)
	}
	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("database_url must be a valid URL")
		}
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must be >= 0")
	}
	switch c.Queue.Backend {
	case "memory":
		if c.Queue.Depth <= 0 {
			return fmt.Errorf("queue.depth must be > 0")
		}
	case "redis":
		if c.Queue.RedisAddr == "" {
			return fmt.Errorf("queue.redis_addr must be set when queue.backend is redis")
		}
	default:
		return fmt.Errorf("queue.backend must be memory or redis, got %q", c.Queue.Backend)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.PerHostRPS < 0 {
		return fmt.Errorf("fetch.per_host_rps must be >= 0")
	}
	if c.Fetch.HeadlessEnabled && c.Fetch.HeadlessMaxPar <= 0 {
		return fmt.Errorf("fetch.headless_max_parallel must be > 0 when headless is enabled")
	}
	if c.Storage.GCSBucket != "" && c.Storage.LocalDir != "" {
		return fmt.Errorf("storage.gcs_bucket and storage.local_dir are mutually exclusive")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.Summarizer.Sentences <= 0 {
		return fmt.Errorf("summarizer.sentences must be > 0")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// HeadlessNavTimeout converts the headless navigation timeout into a duration.
func (c Config) HeadlessNavTimeout() time.Duration {
	return time.Duration(c.Fetch.HeadlessNavTimeout) * time.Second
}

// RequestTimeout bounds a single HTTP request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// RetryBackoff returns the initial and maximum retry delays.
func (c Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.Worker.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.Worker.BackoffMaxMs) * time.Millisecond
}
