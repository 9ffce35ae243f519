// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AdminAccount may update identity stats and finalize any challenge.
	AdminAccount string `koanf:"admin_account"`

	// TreasuryAccount receives settlement residue. Empty leaves it untracked.
	TreasuryAccount string `koanf:"treasury_account"`

	// JWTSecret signs and verifies caller tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTLSeconds is the lifetime of tokens minted by the service.
	TokenTTLSeconds int `koanf:"token_ttl_s"`

	// MinDurationSeconds and MaxDurationSeconds bound challenge durations.
	MinDurationSeconds int64 `koanf:"min_duration_s"`
	MaxDurationSeconds int64 `koanf:"max_duration_s"`

	// WinnerSharePct is the prize percentage credited to the top account.
	WinnerSharePct int64 `koanf:"winner_share_pct"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of event workers.
	WorkerCount int `koanf:"worker_count"`

	// JournalPath is the SQLite event journal file. Empty disables the journal.
	JournalPath string `koanf:"journal_path"`

	// ReputationSyncIntervalSeconds schedules the reputation sync job; 0 disables it.
	ReputationSyncIntervalSeconds int `koanf:"reputation_sync_interval_s"`

	// RateLimitRPS and RateLimitBurst throttle mutating requests per caller.
	// RateLimitRPS <= 0 disables throttling.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_s"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                      "info",
		LogFormat:                     "text",
		Addr:                          ":9080",
		TokenTTLSeconds:               3600,
		MinDurationSeconds:            3600,
		MaxDurationSeconds:            30 * 24 * 3600,
		WinnerSharePct:                70,
		EventQueueSize:                10_000,
		WorkerCount:                   2,
		ReputationSyncIntervalSeconds: 300,
		RateLimitRPS:                  20,
		RateLimitBurst:                40,
		ShutdownTimeoutSeconds:        10,
	}
}

// TokenTTL returns TokenTTLSeconds as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// ReputationSyncInterval returns ReputationSyncIntervalSeconds as a duration.
func (c *Config) ReputationSyncInterval() time.Duration {
	return time.Duration(c.ReputationSyncIntervalSeconds) * time.Second
}

// ShutdownTimeout returns ShutdownTimeoutSeconds as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.MinDurationSeconds <= 0 || c.MaxDurationSeconds < c.MinDurationSeconds:
		return fmt.Errorf("%w: duration bounds [%d, %d]", ErrInvalidConfig, c.MinDurationSeconds, c.MaxDurationSeconds)
	case c.WinnerSharePct < 0 || c.WinnerSharePct > 100:
		return fmt.Errorf("%w: winner_share_pct must be within 0..100", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.TokenTTLSeconds < 1:
		return fmt.Errorf("%w: token_ttl_s must be positive", ErrInvalidConfig)
	case c.ReputationSyncIntervalSeconds < 0:
		return fmt.Errorf("%w: reputation_sync_interval_s must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst < 1:
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting", ErrInvalidConfig)
	}
	return nil
}
