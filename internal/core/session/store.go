// Package session owns the shared browsing session against the upstream
// origin: the cookie token itself, its freshness, and the failure streak that
// drives the fetch pipeline's circuit breaker.
package session

import (
	"sync"
	"time"
)

// Store holds the single process-wide session token. All mutation goes
// through Set and RecordFailure; other components only read.
type Store struct {
	TTL   time.Duration
	Clock func() time.Time

	mu         sync.Mutex
	token      string
	acquiredAt time.Time
	failures   int
}

// NewStore creates an empty store. The session is invalid until the first
// successful handshake populates it.
func NewStore(ttl time.Duration) *Store {
	return &Store{TTL: ttl}
}

// IsValid reports whether a token is present and younger than the TTL.
func (s *Store) IsValid() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return false
	}
	return s.now().Sub(s.acquiredAt) < s.TTL
}

// Token returns the current token. It may be empty or expired; callers check
// IsValid first or tolerate a near-expired token.
func (s *Store) Token() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set atomically replaces the token, stamps the acquisition time, and clears
// the failure streak.
func (s *Store) Set(token string, now time.Time) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.acquiredAt = now
	s.failures = 0
}

// Invalidate drops the token so the next acquisition performs a handshake.
func (s *Store) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.acquiredAt = time.Time{}
}

// RecordFailure increments the consecutive-failure streak and returns it.
func (s *Store) RecordFailure() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	return s.failures
}

// Failures returns the current consecutive-failure streak.
func (s *Store) Failures() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// ResetFailures clears the streak. Called after a successful fetch and after
// a cooldown window has been served.
func (s *Store) ResetFailures() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
}

// AcquiredAt reports when the current token was obtained.
func (s *Store) AcquiredAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquiredAt
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
