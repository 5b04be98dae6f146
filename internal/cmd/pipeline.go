package cmd

import (
	"time"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/pcrwatch/pcrwatch/internal/config"
	"github.com/pcrwatch/pcrwatch/internal/core/fetch"
	"github.com/pcrwatch/pcrwatch/internal/core/pace"
	"github.com/pcrwatch/pcrwatch/internal/core/session"
	"github.com/pcrwatch/pcrwatch/internal/core/upstream"
)

// buildFetcher assembles the scraping pipeline from configuration: one
// governor, one client, one session store, one fetcher. Both serve and the
// one-shot fetch command go through here so there is exactly one wiring.
func buildFetcher(cfg *config.Config, logger *logging.Logger) (*fetch.Fetcher, *session.Store) {
	governor := pace.New(cfg.Pace.MinGap, cfg.Pace.JitterMin, cfg.Pace.JitterMax)

	client := upstream.NewClient(upstream.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.RequestTimeout,
		Governor:  governor,
	})

	sessions := session.NewStore(cfg.Session.TTL)

	acquirer := &session.Acquirer{
		Store:       sessions,
		Client:      client,
		LandingPath: cfg.Upstream.LandingPath,
		WarmupPaths: cfg.Upstream.WarmupPaths,
		DelayMin:    cfg.Session.HandshakeDelayMin,
		DelayMax:    cfg.Session.HandshakeDelayMax,
		Logger:      logger,
	}

	fetcher := &fetch.Fetcher{
		Sessions:    sessions,
		Acquirer:    acquirer,
		Client:      client,
		Policy:      buildPolicy(cfg.Retry, governor),
		DataPath:    cfg.Upstream.DataPath,
		Referer:     cfg.Upstream.BaseURL + cfg.Upstream.RefererPath,
		ThinkTime:   cfg.Pace.ThinkTime,
		Cooldown:    cfg.Retry.Cooldown,
		MaxAttempts: cfg.Retry.MaxAttempts,
		Logger:      logger,
	}

	return fetcher, sessions
}

// buildPolicy maps the retry config to a backoff policy. Delays are floored
// at the governor's minimum gap so retries never undercut the pacing.
func buildPolicy(cfg config.RetryConfig, governor *pace.Governor) fetch.BackoffPolicy {
	floor := governor.MinGap()

	if cfg.Backoff == "jitter" {
		return &fetch.JitterBackoff{
			Base:            cfg.BackoffStep,
			Jitter:          cfg.BackoffJitter,
			Floor:           floor,
			StreakThreshold: cfg.StreakThreshold,
		}
	}

	return fetch.LinearBackoff{
		Step:            cfg.BackoffStep,
		Floor:           floor,
		StreakThreshold: cfg.StreakThreshold,
	}
}

// timeNow exists so one-shot commands stamp snapshots consistently in UTC.
func timeNow() time.Time {
	return time.Now().UTC()
}
