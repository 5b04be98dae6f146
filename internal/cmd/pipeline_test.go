package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pcrwatch/pcrwatch/internal/config"
	"github.com/pcrwatch/pcrwatch/internal/core/fetch"
	"github.com/pcrwatch/pcrwatch/internal/core/pace"
)

func testConfig() *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:     "https://example.test",
			LandingPath: "/",
			WarmupPaths: []string{"/warm"},
			DataPath:    "/api/data",
			RefererPath: "/chain",
		},
		Session: config.SessionConfig{TTL: 3 * time.Minute},
		Pace:    config.PaceConfig{MinGap: 8 * time.Second, ThinkTime: 2 * time.Second},
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			Backoff:         "linear",
			BackoffStep:     5 * time.Second,
			BackoffJitter:   2 * time.Second,
			StreakThreshold: 3,
			Cooldown:        60 * time.Second,
		},
	}
}

func TestBuildFetcherWiring(t *testing.T) {
	cfg := testConfig()

	fetcher, sessions := buildFetcher(cfg, nil)
	require.NotNil(t, fetcher)
	require.NotNil(t, sessions)

	require.Same(t, sessions, fetcher.Sessions)
	require.NotNil(t, fetcher.Acquirer)
	require.NotNil(t, fetcher.Client)
	require.Equal(t, "/api/data", fetcher.DataPath)
	require.Equal(t, "https://example.test/chain", fetcher.Referer)
	require.Equal(t, 3, fetcher.MaxAttempts)
	require.Equal(t, 60*time.Second, fetcher.Cooldown)
}

func TestBuildPolicySelectsBackoff(t *testing.T) {
	governor := pace.New(8*time.Second, 0, 0)

	linear := buildPolicy(testConfig().Retry, governor)
	lb, ok := linear.(fetch.LinearBackoff)
	require.True(t, ok)
	require.Equal(t, 8*time.Second, lb.Floor)
	require.True(t, lb.ShouldCooldown(3))
	require.False(t, lb.ShouldCooldown(2))

	jitterCfg := testConfig().Retry
	jitterCfg.Backoff = "jitter"
	jb, ok := buildPolicy(jitterCfg, governor).(*fetch.JitterBackoff)
	require.True(t, ok)
	require.Equal(t, 8*time.Second, jb.Floor)

	// Delays never undercut the governor's spacing.
	require.GreaterOrEqual(t, lb.RetryDelay(1), 8*time.Second)
	require.GreaterOrEqual(t, jb.RetryDelay(1), 8*time.Second)
}
