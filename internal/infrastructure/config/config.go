package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"TERMD_PORT" default:"7070"`
	Host string `envconfig:"TERMD_HOST" default:"127.0.0.1"`
}

// TerminalConfig holds session and shell configuration.
type TerminalConfig struct {
	// InterruptWindow is the debounce window distinguishing a repeated
	// interrupt (descendant kill) from two independent soft interrupts.
	InterruptWindow time.Duration `envconfig:"TERMD_INTERRUPT_WINDOW" default:"500ms"`
	// ScrollbackSize bounds the per-session replay buffer in bytes.
	ScrollbackSize int `envconfig:"TERMD_SCROLLBACK_BYTES" default:"1048576"`
	// HistoryLimit caps the embedded shell's persisted history entries.
	HistoryLimit int `envconfig:"TERMD_HISTORY_LIMIT" default:"500"`
	// DefaultRows/DefaultCols apply when a spawn request omits a size.
	DefaultRows int `envconfig:"TERMD_DEFAULT_ROWS" default:"24"`
	DefaultCols int `envconfig:"TERMD_DEFAULT_COLS" default:"80"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"TERMD_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"TERMD_LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"TERMD_RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"TERMD_RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"TERMD_RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "7070",
			Host: "127.0.0.1",
		},
		Terminal: TerminalConfig{
			InterruptWindow: 500 * time.Millisecond,
			ScrollbackSize:  1 << 20,
			HistoryLimit:    500,
			DefaultRows:     24,
			DefaultCols:     80,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
