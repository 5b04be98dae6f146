package fetch

import (
	"math/rand"
	"sync"
	"time"
)

// BackoffPolicy decides how long to wait between retry attempts and when the
// failure streak warrants an extended cooldown. Implementations must be
// monotonically non-decreasing in the attempt number and must never return a
// delay below the configured floor (the rate governor's minimum gap).
type BackoffPolicy interface {
	RetryDelay(attempt int) time.Duration
	ShouldCooldown(consecutiveFailures int) bool
}

// LinearBackoff waits attempt * Step between retries.
type LinearBackoff struct {
	Step            time.Duration
	Floor           time.Duration
	StreakThreshold int
}

// RetryDelay returns attempt * Step, clamped to the floor.
func (p LinearBackoff) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * p.Step
	if d < p.Floor {
		return p.Floor
	}
	return d
}

// ShouldCooldown reports whether the streak has crossed the threshold.
func (p LinearBackoff) ShouldCooldown(consecutiveFailures int) bool {
	return p.StreakThreshold > 0 && consecutiveFailures >= p.StreakThreshold
}

// JitterBackoff waits attempt * Base plus a random 0..Jitter extra, so
// retries do not land on a fixed cadence.
type JitterBackoff struct {
	Base            time.Duration
	Jitter          time.Duration
	Floor           time.Duration
	StreakThreshold int

	mu  sync.Mutex
	rng *rand.Rand
}

// RetryDelay returns attempt * Base + U(0, Jitter), clamped to the floor.
func (p *JitterBackoff) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * p.Base
	if p.Jitter > 0 {
		p.mu.Lock()
		if p.rng == nil {
			p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		d += time.Duration(p.rng.Int63n(int64(p.Jitter)))
		p.mu.Unlock()
	}
	if d < p.Floor {
		return p.Floor
	}
	return d
}

// ShouldCooldown reports whether the streak has crossed the threshold.
func (p *JitterBackoff) ShouldCooldown(consecutiveFailures int) bool {
	return p.StreakThreshold > 0 && consecutiveFailures >= p.StreakThreshold
}
