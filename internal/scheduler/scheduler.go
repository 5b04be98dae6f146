// Package scheduler drives periodic fetches for the configured watch list.
// It is deliberately boring: one goroutine, one ticker, sequential symbols.
// Concurrency against the upstream is the one thing this service must never
// add.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/pcrwatch/pcrwatch/internal/core"
	"github.com/pcrwatch/pcrwatch/internal/core/pace"
)

// Refresher runs the fetch pipeline for one symbol.
type Refresher interface {
	Refresh(ctx context.Context, symbol string) (*core.Snapshot, error)
}

// MarketHours gates sweeps to trading hours.
type MarketHours interface {
	IsOpen(t time.Time) bool
}

// Scheduler sweeps the watch list on a fixed interval while the market is
// open. Failures are logged and the loop keeps going; a scrape target being
// uncooperative is normal operation, not a reason to die.
type Scheduler struct {
	Refresher Refresher
	Hours     MarketHours
	Symbols   []string

	Interval       time.Duration
	StartJitterMax time.Duration
	SymbolGap      time.Duration

	Logger *logging.Logger

	// Sleep and Clock are injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Clock func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Run blocks until ctx is cancelled. The first sweep happens after a random
// start delay so restarts do not land on the upstream at a predictable
// moment.
func (s *Scheduler) Run(ctx context.Context) error {
	if jitter := s.startJitter(); jitter > 0 {
		if s.Logger != nil {
			s.Logger.Info("delaying first sweep",
				zap.Duration("jitter", jitter))
		}
		if err := s.sleep(ctx, jitter); err != nil {
			return err
		}
	}

	s.sweep(ctx)

	interval := s.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep fetches every symbol once, in order, respecting the market gate.
func (s *Scheduler) sweep(ctx context.Context) {
	now := s.now()
	if s.Hours != nil && !s.Hours.IsOpen(now) {
		if s.Logger != nil {
			s.Logger.Debug("market closed, skipping sweep",
				zap.Time("at", now))
		}
		return
	}

	for i, symbol := range s.Symbols {
		if ctx.Err() != nil {
			return
		}

		if i > 0 && s.SymbolGap > 0 {
			if err := s.sleep(ctx, s.SymbolGap); err != nil {
				return
			}
		}

		snap, err := s.Refresher.Refresh(ctx, symbol)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("scheduled refresh failed",
					zap.String("symbol", symbol),
					zap.Error(err))
			}
			continue
		}

		if s.Logger != nil && snap != nil {
			s.Logger.Debug("scheduled refresh done",
				zap.String("symbol", symbol),
				zap.Float64("pcr_oi", snap.PCROpenInterest))
		}
	}
}

func (s *Scheduler) startJitter() time.Duration {
	if s.StartJitterMax <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(s.rng.Int63n(int64(s.StartJitterMax)))
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return pace.SleepContext(ctx, d)
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
