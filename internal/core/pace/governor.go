// Package pace enforces the outbound request cadence toward the upstream
// origin. A single Governor is shared by the session handshake and the data
// fetch path so the combined traffic respects one ceiling.
package pace

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Governor spaces outbound requests at least MinGap apart, optionally adding
// a random jitter on top so the cadence does not look machine-generated.
type Governor struct {
	limiter   *rate.Limiter
	minGap    time.Duration
	jitterMin time.Duration
	jitterMax time.Duration

	// Sleep is injectable for tests; defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	lastGate time.Time
	rng      *rand.Rand
}

// New builds a Governor with the given floor and jitter range. A zero or
// negative minGap disables spacing entirely (the gate becomes a no-op).
func New(minGap, jitterMin, jitterMax time.Duration) *Governor {
	g := &Governor{
		minGap:    minGap,
		jitterMin: jitterMin,
		jitterMax: jitterMax,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if minGap > 0 {
		g.limiter = rate.NewLimiter(rate.Every(minGap), 1)
	}
	return g
}

// Gate suspends the caller until at least MinGap has elapsed since the last
// gated request, plus jitter if configured. It only fails when the context
// is cancelled.
func (g *Governor) Gate(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if jitter := g.jitter(); jitter > 0 {
		if err := g.sleep(ctx, jitter); err != nil {
			return err
		}
	}

	g.mu.Lock()
	g.lastGate = time.Now()
	g.mu.Unlock()
	return nil
}

// MinGap reports the configured floor. Backoff policies use it so retry
// delays never undercut the request pacing.
func (g *Governor) MinGap() time.Duration {
	if g == nil {
		return 0
	}
	return g.minGap
}

// LastGate returns when the most recent gated request was released.
func (g *Governor) LastGate() time.Time {
	if g == nil {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastGate
}

func (g *Governor) jitter() time.Duration {
	if g.jitterMax <= 0 || g.jitterMax < g.jitterMin {
		return 0
	}
	if g.jitterMax == g.jitterMin {
		return g.jitterMin
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.jitterMin + time.Duration(g.rng.Int63n(int64(g.jitterMax-g.jitterMin)))
}

func (g *Governor) sleep(ctx context.Context, d time.Duration) error {
	if g.Sleep != nil {
		return g.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext blocks for d or until the context is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
