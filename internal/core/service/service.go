// Package service is the glue between the scraping pipeline and its
// consumers: it fetches chains, aggregates them, and keeps the cache and the
// history store in sync.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/pcrwatch/pcrwatch/internal/core"
	"github.com/pcrwatch/pcrwatch/internal/core/fetch"
	"github.com/pcrwatch/pcrwatch/internal/core/pcr"
	"github.com/pcrwatch/pcrwatch/internal/core/store"
)

// SnapshotStore is the persistence surface the service needs.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *core.Snapshot) error
	LatestSnapshot(ctx context.Context, symbol string) (*core.Snapshot, error)
	History(ctx context.Context, symbol string, since time.Time, limit int) ([]*core.Snapshot, error)
}

var _ SnapshotStore = (*store.Store)(nil)

// ChainFetcher fetches one option chain.
type ChainFetcher interface {
	Fetch(ctx context.Context, symbol string) (*core.OptionChain, error)
}

var _ ChainFetcher = (*fetch.Fetcher)(nil)

// Service implements the read and refresh operations behind the API and the
// scheduler.
type Service struct {
	Fetcher ChainFetcher
	Store   SnapshotStore
	Logger  *logging.Logger

	// Clock is injectable for tests.
	Clock func() time.Time

	mu     sync.RWMutex
	latest map[string]*core.Snapshot
}

// New creates a service around the given fetcher and store. The store may be
// nil, in which case only the in-memory cache is maintained.
func New(fetcher ChainFetcher, snapshots SnapshotStore, logger *logging.Logger) *Service {
	return &Service{
		Fetcher: fetcher,
		Store:   snapshots,
		Logger:  logger,
		latest:  make(map[string]*core.Snapshot),
	}
}

// Latest returns the newest snapshot for a symbol, preferring the in-memory
// cache and falling back to the store after a restart.
func (s *Service) Latest(ctx context.Context, symbol string) (*core.Snapshot, error) {
	symbol = normalizeSymbol(symbol)

	s.mu.RLock()
	cached := s.latest[symbol]
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	if s.Store == nil {
		return nil, nil
	}

	snap, err := s.Store.LatestSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		s.remember(snap)
	}
	return snap, nil
}

// History returns persisted snapshots for a symbol, newest first.
func (s *Service) History(ctx context.Context, symbol string, since time.Time, limit int) ([]*core.Snapshot, error) {
	if s.Store == nil {
		return nil, nil
	}
	return s.Store.History(ctx, normalizeSymbol(symbol), since, limit)
}

// Refresh runs the full fetch pipeline for a symbol and records the result.
// A fetch failure leaves the cache and store untouched.
func (s *Service) Refresh(ctx context.Context, symbol string) (*core.Snapshot, error) {
	symbol = normalizeSymbol(symbol)

	chain, err := s.Fetcher.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	snap := pcr.Aggregate(symbol, chain, s.now())
	if snap == nil {
		return nil, fmt.Errorf("aggregate %s: empty chain", symbol)
	}

	s.remember(snap)

	if s.Store != nil {
		if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
			// The observation is still served from cache; persistence is
			// best-effort here.
			if s.Logger != nil {
				s.Logger.Warn("failed to persist snapshot",
					zap.String("symbol", symbol),
					zap.Error(err))
			}
		}
	}

	if s.Logger != nil {
		s.Logger.Info("snapshot refreshed",
			zap.String("symbol", symbol),
			zap.Float64("pcr_oi", snap.PCROpenInterest),
			zap.Float64("pcr_volume", snap.PCRVolume),
			zap.Float64("underlying", snap.UnderlyingValue))
	}

	return snap, nil
}

// Cached returns the cached snapshot without touching the store.
func (s *Service) Cached(symbol string) *core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[normalizeSymbol(symbol)]
}

func (s *Service) remember(snap *core.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.latest[snap.Symbol]
	if current == nil || !snap.FetchedAt.Before(current.FetchedAt) {
		s.latest[snap.Symbol] = snap
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
