// Package fetch wraps the option-chain data call with session attachment,
// retry-with-backoff, and the failure-streak circuit breaker. It is the sole
// retry boundary: callers treat an escaped error as final for that
// invocation.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pcrwatch/pcrwatch/internal/core"
	"github.com/pcrwatch/pcrwatch/internal/core/pace"
	"github.com/pcrwatch/pcrwatch/internal/core/session"
)

// SessionSource yields a session token, optionally forcing a handshake.
type SessionSource interface {
	Acquire(ctx context.Context, force bool) (string, error)
}

// Fetcher retrieves one symbol's option chain through the shared session and
// rate governor.
type Fetcher struct {
	Sessions *session.Store
	Acquirer SessionSource
	Client   *resty.Client
	Policy   BackoffPolicy

	// DataPath is the JSON endpoint; the symbol rides in a query parameter.
	DataPath string
	// Referer mimics the page a browser would issue the AJAX call from.
	Referer string

	// ThinkTime simulates the pause between page load and the AJAX call. It
	// is separate from the governor's spacing.
	ThinkTime time.Duration
	// Cooldown is the circuit-breaker pause served once the failure streak
	// crosses the policy threshold.
	Cooldown    time.Duration
	MaxAttempts int

	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *logging.Logger
}

// Fetch retrieves the option chain for symbol, retrying per policy. On
// exhaustion it returns a FetchError carrying the last cause.
func (f *Fetcher) Fetch(ctx context.Context, symbol string) (*core.OptionChain, error) {
	if f == nil || f.Sessions == nil || f.Acquirer == nil || f.Client == nil {
		return nil, fmt.Errorf("fetcher is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxAttempts := f.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	if f.Policy != nil && f.Policy.ShouldCooldown(f.Sessions.Failures()) {
		if f.Logger != nil {
			f.Logger.Warn("failure streak cooldown",
				zap.Int("consecutive_failures", f.Sessions.Failures()),
				zap.Duration("cooldown", f.Cooldown))
		}
		if err := f.sleep(ctx, f.Cooldown); err != nil {
			return nil, err
		}
		f.Sessions.ResetFailures()
	}

	var (
		lastCause = core.CauseBadStatus
		lastErr   error
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		chain, cause, err := f.attempt(ctx, symbol, attempt)
		if err == nil {
			f.Sessions.ResetFailures()
			return chain, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastCause = cause
		lastErr = err
		f.Sessions.RecordFailure()

		if f.Logger != nil {
			f.Logger.Warn("fetch attempt failed",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.String("cause", string(cause)),
				zap.Error(err))
		}

		if attempt < maxAttempts && f.Policy != nil {
			if err := f.sleep(ctx, f.Policy.RetryDelay(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, &core.FetchError{
		Symbol:   symbol,
		Attempts: maxAttempts,
		Cause:    lastCause,
		Err:      lastErr,
	}
}

// attempt runs one try: session (forced refresh after a failed attempt),
// think-time pause, gated data request, response classification.
func (f *Fetcher) attempt(ctx context.Context, symbol string, attempt int) (*core.OptionChain, core.FailureCause, error) {
	token, err := f.Acquirer.Acquire(ctx, attempt > 1)
	if err != nil {
		return nil, core.ClassifyNetworkError(err), err
	}

	if err := f.sleep(ctx, f.ThinkTime); err != nil {
		return nil, core.CauseNetworkTimeout, err
	}

	res, err := f.Client.R().
		SetContext(ctx).
		SetHeader("Cookie", token).
		SetHeader("Referer", f.Referer).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Accept", "application/json").
		SetQueryParam("symbol", symbol).
		Get(f.DataPath)
	if err != nil {
		return nil, core.ClassifyNetworkError(err), err
	}

	switch {
	case res.StatusCode() == http.StatusForbidden:
		return nil, core.CauseBlocked, fmt.Errorf("origin blocked the request (403)")
	case res.StatusCode() != http.StatusOK:
		return nil, core.CauseBadStatus, fmt.Errorf("unexpected status %d", res.StatusCode())
	}

	var chain core.OptionChain
	if err := json.Unmarshal(res.Body(), &chain); err != nil {
		return nil, core.CauseMalformedPayload, fmt.Errorf("decode option chain: %w", err)
	}
	if len(chain.Records.Data) == 0 {
		return nil, core.CauseMalformedPayload, fmt.Errorf("option chain has no records")
	}

	return &chain, "", nil
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if f.Sleep != nil {
		return f.Sleep(ctx, d)
	}
	return pace.SleepContext(ctx, d)
}
