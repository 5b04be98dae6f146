package config

import "time"

// Config is the complete application configuration. Values come from the
// config file, PCRWATCH_* environment variables, and command-line flags, in
// increasing order of precedence.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Session   SessionConfig   `mapstructure:"session"`
	Pace      PaceConfig      `mapstructure:"pace"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Market    MarketConfig    `mapstructure:"market"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains snapshot history database configuration.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// UpstreamConfig describes the exchange origin being scraped.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	LandingPath    string        `mapstructure:"landing_path"`
	WarmupPaths    []string      `mapstructure:"warmup_paths"`
	DataPath       string        `mapstructure:"data_path"`
	RefererPath    string        `mapstructure:"referer_path"`
	Symbols        []string      `mapstructure:"symbols"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SessionConfig controls the shared session lifecycle.
type SessionConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	HandshakeDelayMin time.Duration `mapstructure:"handshake_delay_min"`
	HandshakeDelayMax time.Duration `mapstructure:"handshake_delay_max"`
}

// PaceConfig controls outbound request spacing.
type PaceConfig struct {
	MinGap    time.Duration `mapstructure:"min_gap"`
	JitterMin time.Duration `mapstructure:"jitter_min"`
	JitterMax time.Duration `mapstructure:"jitter_max"`
	ThinkTime time.Duration `mapstructure:"think_time"`
}

// RetryConfig controls the retry and circuit-breaker policy.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	Backoff         string        `mapstructure:"backoff"` // "linear" or "jitter"
	BackoffStep     time.Duration `mapstructure:"backoff_step"`
	BackoffJitter   time.Duration `mapstructure:"backoff_jitter"`
	StreakThreshold int           `mapstructure:"streak_threshold"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
}

// MarketConfig describes the trading window gating scheduled fetches.
type MarketConfig struct {
	MIC        string `mapstructure:"mic"`
	Timezone   string `mapstructure:"timezone"`
	Open       string `mapstructure:"open"`
	Close      string `mapstructure:"close"`
	AlwaysOpen bool   `mapstructure:"always_open"`
}

// SchedulerConfig controls the periodic fetch loop.
type SchedulerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	StartJitterMax time.Duration `mapstructure:"start_jitter_max"`
	SymbolGap      time.Duration `mapstructure:"symbol_gap"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}
