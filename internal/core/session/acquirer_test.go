package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

type handshakeOrigin struct {
	mu       sync.Mutex
	requests []string
	referers []string
	cookies  bool
}

func (o *handshakeOrigin) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.requests = append(o.requests, r.URL.Path)
		o.referers = append(o.referers, r.Header.Get("Referer"))
		o.mu.Unlock()

		if r.URL.Path == "/" && o.cookies {
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: "nseappid", Value: "xyz", Path: "/", HttpOnly: true})
		}
		w.WriteHeader(http.StatusOK)
	})
}

func newTestAcquirer(t *testing.T, origin *handshakeOrigin, ttl time.Duration) (*Acquirer, *Store) {
	t.Helper()

	server := httptest.NewServer(origin.handler())
	t.Cleanup(server.Close)

	client := resty.New()
	client.SetBaseURL(server.URL)

	store := NewStore(ttl)
	acq := &Acquirer{
		Store:       store,
		Client:      client,
		LandingPath: "/",
		WarmupPaths: []string{"/get-quotes/derivatives", "/option-chain"},
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}
	return acq, store
}

func TestAcquireRunsFullHandshake(t *testing.T) {
	origin := &handshakeOrigin{cookies: true}
	acq, store := newTestAcquirer(t, origin, 3*time.Minute)

	token, err := acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "nsit=abc; nseappid=xyz", token)
	require.True(t, store.IsValid())

	require.Equal(t, []string{"/", "/get-quotes/derivatives", "/option-chain"}, origin.requests)

	// Warm-up pages chain referers: landing -> quotes page -> option chain.
	require.Empty(t, origin.referers[0])
	require.Contains(t, origin.referers[1], "/")
	require.Contains(t, origin.referers[2], "/get-quotes/derivatives")
}

func TestAcquireReusesValidSession(t *testing.T) {
	origin := &handshakeOrigin{cookies: true}
	acq, _ := newTestAcquirer(t, origin, 3*time.Minute)

	first, err := acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	requestsAfterFirst := len(origin.requests)

	second, err := acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, requestsAfterFirst, len(origin.requests), "cache hit must not touch the network")
}

func TestAcquireForceRefresh(t *testing.T) {
	origin := &handshakeOrigin{cookies: true}
	acq, _ := newTestAcquirer(t, origin, 3*time.Minute)

	_, err := acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	requestsAfterFirst := len(origin.requests)

	_, err = acq.Acquire(context.Background(), true)
	require.NoError(t, err)
	require.Greater(t, len(origin.requests), requestsAfterFirst, "forced refresh must re-handshake")
}

func TestAcquireExpiredSessionRehandshakes(t *testing.T) {
	origin := &handshakeOrigin{cookies: true}
	acq, store := newTestAcquirer(t, origin, 180*time.Second)

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store.Clock = func() time.Time { return now }
	acq.Clock = func() time.Time { return now }

	_, err := acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	handshakes := len(origin.requests)

	// Within TTL: cache hit.
	now = now.Add(100 * time.Second)
	_, err = acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, handshakes, len(origin.requests))

	// Past TTL: full handshake again.
	now = now.Add(100 * time.Second)
	_, err = acq.Acquire(context.Background(), false)
	require.NoError(t, err)
	require.Greater(t, len(origin.requests), handshakes)
}

func TestAcquireNoCookies(t *testing.T) {
	origin := &handshakeOrigin{cookies: false}
	acq, store := newTestAcquirer(t, origin, time.Minute)

	_, err := acq.Acquire(context.Background(), false)
	require.Error(t, err)

	var sessionErr *core.SessionError
	require.ErrorAs(t, err, &sessionErr)
	require.Equal(t, 1, store.Failures())
	require.False(t, store.IsValid())
}

func TestAcquireNetworkErrorRecordsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := resty.New()
	client.SetBaseURL(server.URL)

	store := NewStore(time.Minute)
	acq := &Acquirer{
		Store:       store,
		Client:      client,
		LandingPath: "/",
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}

	_, err := acq.Acquire(context.Background(), false)
	require.Error(t, err)

	var sessionErr *core.SessionError
	require.ErrorAs(t, err, &sessionErr)
	require.Equal(t, 1, store.Failures())
}

func TestSerializeCookies(t *testing.T) {
	cookies := []*http.Cookie{
		{Name: "nsit", Value: "abc", Path: "/", HttpOnly: true},
		{Name: "ak_bmsc", Value: "0123", Expires: time.Now().Add(time.Hour)},
		nil,
		{Name: "", Value: "ignored"},
	}
	require.Equal(t, "nsit=abc; ak_bmsc=0123", SerializeCookies(cookies))
}
