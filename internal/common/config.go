package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Backend     BackendConfig   `toml:"backend"`
	Transport   TransportConfig `toml:"transport"`
	Polling     PollingConfig   `toml:"polling"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

// ServerConfig configures the local read-only mirror endpoint.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// BackendConfig identifies the backend REST layer the engine mirrors.
type BackendConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	RequestTimeout string `toml:"request_timeout"` // e.g., "10s"
}

// TransportConfig configures the push channel and its reconnect behaviour.
type TransportConfig struct {
	URL               string `toml:"url" validate:"required"` // ws:// or wss:// endpoint
	HeartbeatInterval string `toml:"heartbeat_interval"`      // e.g., "30s"
	ReconnectBaseWait string `toml:"reconnect_base_wait"`     // e.g., "1s" - first backoff step
	ReconnectMaxWait  string `toml:"reconnect_max_wait"`      // e.g., "30s" - backoff ceiling
	MaxReconnects     int    `toml:"max_reconnects"`          // failed attempts before polling fallback
}

// PollingConfig configures the polling fallback driver.
type PollingConfig struct {
	JobInterval   string `toml:"job_interval"`   // e.g., "5s" - per-job status pull
	StatsInterval string `toml:"stats_interval"` // e.g., "10s" - aggregate stats pull
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SchedulerConfig configures the optional cron-driven forced refresh.
type SchedulerConfig struct {
	RefreshSchedule string `toml:"refresh_schedule"` // cron expression, empty = disabled
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8710,
			Host: "localhost",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8080",
			RequestTimeout: "10s",
		},
		Transport: TransportConfig{
			URL:               "ws://localhost:8080/ws",
			HeartbeatInterval: "30s",
			ReconnectBaseWait: "1s",
			ReconnectMaxWait:  "30s",
			MaxReconnects:     5,
		},
		Polling: PollingConfig{
			JobInterval:   "5s",
			StatsInterval: "10s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/jobsync",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from defaults, then overlays each file in
// order (later files override earlier ones), then validates the result.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural validity plus duration-typed string fields.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"backend.request_timeout":       c.Backend.RequestTimeout,
		"transport.heartbeat_interval":  c.Transport.HeartbeatInterval,
		"transport.reconnect_base_wait": c.Transport.ReconnectBaseWait,
		"transport.reconnect_max_wait":  c.Transport.ReconnectMaxWait,
		"polling.job_interval":          c.Polling.JobInterval,
		"polling.stats_interval":        c.Polling.StatsInterval,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", field, value)
		}
	}

	if c.Transport.MaxReconnects < 1 {
		return fmt.Errorf("transport.max_reconnects must be at least 1")
	}

	return nil
}

// ParseDuration parses a config duration string, falling back to a default
// when the value is empty or malformed.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
