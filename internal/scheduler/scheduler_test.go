package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

type recordingRefresher struct {
	mu      sync.Mutex
	symbols []string
	errFor  map[string]error
}

func (r *recordingRefresher) Refresh(ctx context.Context, symbol string) (*core.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols = append(r.symbols, symbol)
	if err := r.errFor[symbol]; err != nil {
		return nil, err
	}
	return &core.Snapshot{Symbol: symbol, PCROpenInterest: 1.1}, nil
}

func (r *recordingRefresher) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.symbols...)
}

type hoursFunc func(t time.Time) bool

func (f hoursFunc) IsOpen(t time.Time) bool { return f(t) }

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return ctx.Err()
}

func TestSweepFetchesSymbolsInOrder(t *testing.T) {
	refresher := &recordingRefresher{}
	sleeps := &sleepRecorder{}

	s := &Scheduler{
		Refresher: refresher,
		Hours:     hoursFunc(func(time.Time) bool { return true }),
		Symbols:   []string{"NIFTY", "BANKNIFTY", "FINNIFTY"},
		SymbolGap: 10 * time.Second,
		Sleep:     sleeps.sleep,
	}

	s.sweep(context.Background())

	require.Equal(t, []string{"NIFTY", "BANKNIFTY", "FINNIFTY"}, refresher.calls())
	// Gap between symbols, not before the first one.
	require.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, sleeps.slept)
}

func TestSweepSkipsWhenMarketClosed(t *testing.T) {
	refresher := &recordingRefresher{}

	s := &Scheduler{
		Refresher: refresher,
		Hours:     hoursFunc(func(time.Time) bool { return false }),
		Symbols:   []string{"NIFTY"},
	}

	s.sweep(context.Background())

	require.Empty(t, refresher.calls())
}

func TestSweepContinuesPastFailures(t *testing.T) {
	refresher := &recordingRefresher{errFor: map[string]error{
		"NIFTY": &core.FetchError{Symbol: "NIFTY", Attempts: 3, Cause: core.CauseBlocked, Err: errors.New("403")},
	}}

	s := &Scheduler{
		Refresher: refresher,
		Hours:     hoursFunc(func(time.Time) bool { return true }),
		Symbols:   []string{"NIFTY", "BANKNIFTY"},
	}

	s.sweep(context.Background())

	require.Equal(t, []string{"NIFTY", "BANKNIFTY"}, refresher.calls())
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	refresher := &recordingRefresher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scheduler{
		Refresher: refresher,
		Hours:     hoursFunc(func(time.Time) bool { return true }),
		Symbols:   []string{"NIFTY", "BANKNIFTY"},
	}

	s.sweep(ctx)

	require.Empty(t, refresher.calls())
}

func TestRunExitsOnCancel(t *testing.T) {
	refresher := &recordingRefresher{}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		Refresher: refresher,
		Hours:     hoursFunc(func(time.Time) bool { return true }),
		Symbols:   []string{"NIFTY"},
		Interval:  time.Hour,
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let the immediate sweep happen, then cancel.
	require.Eventually(t, func() bool {
		return len(refresher.calls()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit after cancel")
	}
}

func TestStartJitterBounds(t *testing.T) {
	s := &Scheduler{StartJitterMax: 30 * time.Second}

	for i := 0; i < 50; i++ {
		jitter := s.startJitter()
		require.GreaterOrEqual(t, jitter, time.Duration(0))
		require.Less(t, jitter, 30*time.Second)
	}

	none := &Scheduler{}
	require.Equal(t, time.Duration(0), none.startJitter())
}
