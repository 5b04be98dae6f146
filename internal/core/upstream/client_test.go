package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pcrwatch/pcrwatch/internal/core/pace"
)

func TestNewClientSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})

	res, err := client.R().SetContext(context.Background()).Get("/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())

	require.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	require.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
}

func TestNewClientCustomUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, UserAgent: "custom/1.0"})

	_, err := client.R().Get("/")
	require.NoError(t, err)
	require.Equal(t, "custom/1.0", ua)
}

func TestNewClientGatesEveryRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	governor := pace.New(20*time.Millisecond, 0, 0)
	client := NewClient(Options{BaseURL: srv.URL, Governor: governor})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.R().SetContext(context.Background()).Get("/")
		require.NoError(t, err)
	}

	// Two inter-request gaps at 20ms each, minus scheduling tolerance.
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.False(t, governor.LastGate().IsZero())
}
