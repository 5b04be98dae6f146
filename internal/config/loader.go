// Package config provides centralized configuration management. Defaults are
// set in the loader, a YAML config file may override them, and PCRWATCH_*
// environment variables override both.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "PCRWATCH"

// Load reads configuration from the given file (optional) plus environment
// variables, and returns the decoded Config.
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	return load(v, cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pcrwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pcrwatch")
		v.AddConfigPath("/etc/pcrwatch")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults plus env carry the day.
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if cfg.Session.HandshakeDelayMax < cfg.Session.HandshakeDelayMin {
		return fmt.Errorf("session.handshake_delay_max must not be below handshake_delay_min")
	}
	if cfg.Pace.JitterMax < cfg.Pace.JitterMin {
		return fmt.Errorf("pace.jitter_max must not be below pace.jitter_min")
	}
	switch cfg.Retry.Backoff {
	case "linear", "jitter":
	default:
		return fmt.Errorf("retry.backoff must be linear or jitter, got %q", cfg.Retry.Backoff)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "pcrwatch.db")

	v.SetDefault("upstream.base_url", "https://www.nseindia.com")
	v.SetDefault("upstream.landing_path", "/")
	v.SetDefault("upstream.warmup_paths", []string{
		"/get-quotes/derivatives?symbol=NIFTY",
		"/option-chain",
	})
	v.SetDefault("upstream.data_path", "/api/option-chain-indices")
	v.SetDefault("upstream.referer_path", "/option-chain")
	v.SetDefault("upstream.symbols", []string{"NIFTY", "BANKNIFTY"})
	v.SetDefault("upstream.request_timeout", 30*time.Second)

	v.SetDefault("session.ttl", 3*time.Minute)
	v.SetDefault("session.handshake_delay_min", 1500*time.Millisecond)
	v.SetDefault("session.handshake_delay_max", 4*time.Second)

	v.SetDefault("pace.min_gap", 8*time.Second)
	v.SetDefault("pace.jitter_min", time.Duration(0))
	v.SetDefault("pace.jitter_max", time.Duration(0))
	v.SetDefault("pace.think_time", 2*time.Second)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff", "linear")
	v.SetDefault("retry.backoff_step", 5*time.Second)
	v.SetDefault("retry.backoff_jitter", 2*time.Second)
	v.SetDefault("retry.streak_threshold", 3)
	v.SetDefault("retry.cooldown", 60*time.Second)

	v.SetDefault("market.timezone", "Asia/Kolkata")
	v.SetDefault("market.open", "09:15")
	v.SetDefault("market.close", "15:30")
	v.SetDefault("market.always_open", false)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", 5*time.Minute)
	v.SetDefault("scheduler.start_jitter_max", 30*time.Second)
	v.SetDefault("scheduler.symbol_gap", 10*time.Second)

	v.SetDefault("logging.level", "info")
}
