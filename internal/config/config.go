package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Upstream NeoWs feed.
	APIKey       string        `env:"NASA_API_KEY" env-default:"DEMO_KEY"`
	FeedBaseURL  string        `env:"NEO_FEED_URL" env-default:"https://api.nasa.gov/neo/rest/v1/feed"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" env-default:"30s"`

	// Collection policy. The 7-day window is a fixed courtesy toward the
	// feed's per-request payload limits; keep it short.
	TargetRecords    int           `env:"TARGET_RECORDS" env-default:"10000"`
	StartDate        string        `env:"COLLECT_START_DATE" env-default:"2024-01-01"`
	CeilingYear      int           `env:"COLLECT_CEILING_YEAR" env-default:"2025"`
	WindowDays       int           `env:"COLLECT_WINDOW_DAYS" env-default:"7"`
	SuccessDelay     time.Duration `env:"COLLECT_SUCCESS_DELAY" env-default:"1s"`
	RetryDelay       time.Duration `env:"COLLECT_RETRY_DELAY" env-default:"5s"`
	MaxWindowRetries int           `env:"COLLECT_MAX_WINDOW_RETRIES" env-default:"0"` // 0 = retry forever

	// Store.
	DatabasePath string `env:"DATABASE_PATH" env-default:"neo.db"`

	// HTTP surfaces.
	HTTPAddr       string `env:"HTTP_ADDR" env-default:":8080"`
	DashboardAddr  string `env:"DASHBOARD_ADDR" env-default:":8081"`
	QueryRowLimit  int    `env:"QUERY_ROW_LIMIT" env-default:"10000"`
	QueryCacheSize int    `env:"QUERY_CACHE_SIZE" env-default:"64"`

	// Optional Kafka sink for normalized approach events.
	KafkaBrokersRaw string `env:"KAFKA_BROKERS" env-default:""`
	KafkaTopic      string `env:"KAFKA_TOPIC" env-default:"neo-approach-events"`

	// Operational.
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat       string        `env:"LOG_FORMAT" env-default:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	// Derived fields, set by Load.
	KafkaBrokers    []string  `env:"-"`
	ParsedStartDate time.Time `env:"-"`
}

// KafkaEnabled reports whether the optional approach-event sink is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	start, err := time.ParseInLocation(time.DateOnly, cfg.StartDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid COLLECT_START_DATE %q: %w", cfg.StartDate, err)
	}
	cfg.ParsedStartDate = start

	if cfg.KafkaBrokersRaw != "" {
		for _, b := range strings.Split(cfg.KafkaBrokersRaw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return errors.New("NASA_API_KEY is required")
	}
	if c.FeedBaseURL == "" {
		return errors.New("NEO_FEED_URL is required")
	}
	if c.TargetRecords <= 0 {
		return errors.New("TARGET_RECORDS must be positive")
	}
	if c.WindowDays < 1 || c.WindowDays > 7 {
		return errors.New("COLLECT_WINDOW_DAYS must be between 1 and 7")
	}
	if c.CeilingYear < c.ParsedStartDate.Year() {
		return errors.New("COLLECT_CEILING_YEAR precedes COLLECT_START_DATE")
	}
	if c.SuccessDelay < 0 || c.RetryDelay < 0 {
		return errors.New("collection delays must not be negative")
	}
	if c.MaxWindowRetries < 0 {
		return errors.New("COLLECT_MAX_WINDOW_RETRIES must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	if c.QueryRowLimit <= 0 {
		return errors.New("QUERY_ROW_LIMIT must be positive")
	}
	if c.QueryCacheSize <= 0 {
		return errors.New("QUERY_CACHE_SIZE must be positive")
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}
	return nil
}
