//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pcrwatch/pcrwatch/internal/config"
	"github.com/pcrwatch/pcrwatch/internal/core"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot(symbol string, fetchedAt time.Time) *core.Snapshot {
	return &core.Snapshot{
		ID:              uuid.New().String(),
		Symbol:          symbol,
		PCROpenInterest: 1.5,
		PCRVolume:       0.7,
		TotalCallOI:     1000,
		TotalPutOI:      1500,
		TotalCallVolume: 500,
		TotalPutVolume:  350,
		UnderlyingValue: 22450.25,
		Strikes:         3,
		FetchedAt:       fetchedAt,
	}
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

func TestSaveAndLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	older := sampleSnapshot("NIFTY", base)
	newer := sampleSnapshot("NIFTY", base.Add(5*time.Minute))
	newer.PCROpenInterest = 1.8

	require.NoError(t, s.SaveSnapshot(ctx, older))
	require.NoError(t, s.SaveSnapshot(ctx, newer))

	latest, err := s.LatestSnapshot(ctx, "nifty")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, newer.ID, latest.ID)
	require.Equal(t, "NIFTY", latest.Symbol)
	require.InDelta(t, 1.8, latest.PCROpenInterest, 1e-9)
	require.Equal(t, newer.FetchedAt, latest.FetchedAt)
}

func TestLatestSnapshotMissingSymbol(t *testing.T) {
	s := openMemoryStore(t)

	latest, err := s.LatestSnapshot(context.Background(), "BANKNIFTY")
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestHistoryWindowAndOrder(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot("NIFTY", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot("BANKNIFTY", base)))

	history, err := s.History(ctx, "NIFTY", base.Add(2*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		require.True(t, history[i-1].FetchedAt.After(history[i].FetchedAt))
	}
	for _, snap := range history {
		require.Equal(t, "NIFTY", snap.Symbol)
	}

	capped, err := s.History(ctx, "NIFTY", base, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
}

func TestPruneBefore(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot("NIFTY", base.Add(time.Duration(i)*time.Hour))))
	}

	removed, err := s.PruneBefore(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	history, err := s.History(ctx, "NIFTY", base, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
}
