package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Scan      ScanConfig
	Snapshot  SnapshotConfig
	Usage     UsageConfig
	Storage   StorageConfig
	Bridge    BridgeConfig
	Policy    PolicyConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8100"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// ScanConfig controls the periodic suspension scan.
type ScanConfig struct {
	Interval      time.Duration `envconfig:"SCAN_INTERVAL" default:"30s"`
	Concurrency   int           `envconfig:"SCAN_CONCURRENCY" default:"4"`
	SafetyTimeout time.Duration `envconfig:"SAFETY_TIMEOUT" default:"2s"`
}

// SnapshotConfig controls snapshot capture, retention and scroll restore.
type SnapshotConfig struct {
	ScrollTimeout      time.Duration `envconfig:"SCROLL_TIMEOUT" default:"2s"`
	ScrollRestoreDelay time.Duration `envconfig:"SCROLL_RESTORE_DELAY" default:"1s"`
	Retention          time.Duration `envconfig:"SNAPSHOT_RETENTION" default:"168h"`
	PurgeInterval      time.Duration `envconfig:"PURGE_INTERVAL" default:"1h"`
	PlaceholderURL     string        `envconfig:"PLACEHOLDER_URL" default:"chrome-extension://tabsuspender/suspended.html"`
}

// UsageConfig holds the per-tab memory estimate.
type UsageConfig struct {
	MemoryPerTab uint64 `envconfig:"MEMORY_PER_TAB" default:"52428800"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Path     string `envconfig:"STORAGE_PATH" default:"/tmp/tabsuspender"`
	InMemory bool   `envconfig:"STORAGE_IN_MEMORY" default:"false"`
}

// BridgeConfig holds extension bridge configuration.
type BridgeConfig struct {
	Timeout time.Duration `envconfig:"BRIDGE_TIMEOUT" default:"5s"`
}

// PolicyConfig holds the optional policy seed file.
type PolicyConfig struct {
	File  string `envconfig:"POLICY_FILE" default:""`
	Watch bool   `envconfig:"POLICY_WATCH" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Scan.Interval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", c.Scan.Interval)
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("SCAN_CONCURRENCY must be at least 1, got %d", c.Scan.Concurrency)
	}
	if c.Scan.SafetyTimeout <= 0 {
		return fmt.Errorf("SAFETY_TIMEOUT must be positive, got %s", c.Scan.SafetyTimeout)
	}
	if c.Snapshot.PlaceholderURL == "" {
		return fmt.Errorf("PLACEHOLDER_URL is required")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required unless STORAGE_IN_MEMORY is set")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8100",
			Host: "127.0.0.1",
		},
		Scan: ScanConfig{
			Interval:      30 * time.Second,
			Concurrency:   4,
			SafetyTimeout: 2 * time.Second,
		},
		Snapshot: SnapshotConfig{
			ScrollTimeout:      2 * time.Second,
			ScrollRestoreDelay: time.Second,
			Retention:          7 * 24 * time.Hour,
			PurgeInterval:      time.Hour,
			PlaceholderURL:     "chrome-extension://tabsuspender/suspended.html",
		},
		Usage: UsageConfig{
			MemoryPerTab: 50 * 1024 * 1024,
		},
		Storage: StorageConfig{
			Path: "/tmp/tabsuspender",
		},
		Bridge: BridgeConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
