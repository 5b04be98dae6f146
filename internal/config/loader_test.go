package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	require.Equal(t, "localhost", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://www.nseindia.com", cfg.Upstream.BaseURL)
	require.Equal(t, []string{"NIFTY", "BANKNIFTY"}, cfg.Upstream.Symbols)
	require.Equal(t, 3*time.Minute, cfg.Session.TTL)
	require.Equal(t, 8*time.Second, cfg.Pace.MinGap)
	require.Equal(t, 3, cfg.Retry.MaxAttempts)
	require.Equal(t, "linear", cfg.Retry.Backoff)
	require.Equal(t, 60*time.Second, cfg.Retry.Cooldown)
	require.Equal(t, "Asia/Kolkata", cfg.Market.Timezone)
	require.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pcrwatch.yaml")
	content := `
server:
  port: 9000
upstream:
  symbols: [NIFTY]
session:
  ttl: 5m
retry:
  max_attempts: 5
  backoff: jitter
pace:
  min_gap: 12s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, []string{"NIFTY"}, cfg.Upstream.Symbols)
	require.Equal(t, 5*time.Minute, cfg.Session.TTL)
	require.Equal(t, 5, cfg.Retry.MaxAttempts)
	require.Equal(t, "jitter", cfg.Retry.Backoff)
	require.Equal(t, 12*time.Second, cfg.Pace.MinGap)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PCRWATCH_SERVER_PORT", "9999")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	bad := *cfg
	bad.Upstream.BaseURL = ""
	require.Error(t, Validate(&bad))

	bad = *cfg
	bad.Retry.MaxAttempts = 0
	require.Error(t, Validate(&bad))

	bad = *cfg
	bad.Retry.Backoff = "fibonacci"
	require.Error(t, Validate(&bad))

	bad = *cfg
	bad.Session.HandshakeDelayMin = 5 * time.Second
	bad.Session.HandshakeDelayMax = time.Second
	require.Error(t, Validate(&bad))
}
