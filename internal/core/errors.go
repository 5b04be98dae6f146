package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// SessionError reports a failed session handshake. It is always retryable by
// forcing a fresh acquisition.
type SessionError struct {
	Step string
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session handshake failed at %s", e.Step)
	}
	return fmt.Sprintf("session handshake failed at %s: %v", e.Step, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// FetchError reports a data fetch that exhausted its retries. Cause is
// the classification of the last attempt.
type FetchError struct {
	Symbol   string
	Attempts int
	Cause    FailureCause
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s failed after %d attempts (%s)", e.Symbol, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts (%s): %v", e.Symbol, e.Attempts, e.Cause, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport-level error onto a failure cause.
// Timeouts and cancelled deadlines count as NetworkTimeout; anything else at
// the network layer is reported as a bad status.
func ClassifyNetworkError(err error) FailureCause {
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseNetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseNetworkTimeout
	}
	return CauseBadStatus
}
