package session

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pcrwatch/pcrwatch/internal/core"
	"github.com/pcrwatch/pcrwatch/internal/core/pace"
)

// Acquirer performs the browser-emulating handshake that yields a session
// token the data endpoint will accept. The visit sequence (landing page,
// then warm-up pages with referer chaining) is an empirical contract with
// the origin and must be preserved as-is.
type Acquirer struct {
	Store  *Store
	Client *resty.Client

	// LandingPath establishes the cookies; WarmupPaths are visited in order
	// afterwards, each carrying the previous page as referer.
	LandingPath string
	WarmupPaths []string

	// DelayMin/DelayMax bound the human-like pauses between handshake steps.
	DelayMin time.Duration
	DelayMax time.Duration

	Sleep  func(ctx context.Context, d time.Duration) error
	Clock  func() time.Time
	Logger *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Acquire returns a usable session token. With force false and a valid
// stored session, it returns the stored token without any network traffic.
// Otherwise it runs the full handshake and replaces the stored token.
// At most one handshake is in flight at a time.
func (a *Acquirer) Acquire(ctx context.Context, force bool) (string, error) {
	if a == nil || a.Store == nil || a.Client == nil {
		return "", &core.SessionError{Step: "setup", Err: fmt.Errorf("acquirer is not configured")}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !force && a.Store.IsValid() {
		return a.Store.Token(), nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have completed the handshake while we waited.
	if !force && a.Store.IsValid() {
		return a.Store.Token(), nil
	}

	token, err := a.handshake(ctx)
	if err != nil {
		a.Store.RecordFailure()
		return "", err
	}

	a.Store.Set(token, a.now())
	if a.Logger != nil {
		a.Logger.Debug("session established",
			zap.Int("cookies", strings.Count(token, "=")),
			zap.Int("warmup_pages", len(a.WarmupPaths)))
	}
	return token, nil
}

func (a *Acquirer) handshake(ctx context.Context) (string, error) {
	res, err := a.Client.R().
		SetContext(ctx).
		Get(a.LandingPath)
	if err != nil {
		return "", &core.SessionError{Step: "landing", Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return "", &core.SessionError{Step: "landing", Err: fmt.Errorf("status %d", res.StatusCode())}
	}

	token := SerializeCookies(res.Cookies())
	if token == "" {
		return "", &core.SessionError{Step: "landing", Err: fmt.Errorf("no cookies")}
	}

	if err := a.pause(ctx); err != nil {
		return "", &core.SessionError{Step: "pause", Err: err}
	}

	referer := a.Client.BaseURL + a.LandingPath
	for _, path := range a.WarmupPaths {
		res, err := a.Client.R().
			SetContext(ctx).
			SetHeader("Cookie", token).
			SetHeader("Referer", referer).
			Get(path)
		if err != nil {
			return "", &core.SessionError{Step: "warmup", Err: err}
		}
		// The warm-up body is irrelevant; the origin only cares that the
		// navigation sequence happened.
		_ = res
		referer = a.Client.BaseURL + path
	}

	if err := a.pause(ctx); err != nil {
		return "", &core.SessionError{Step: "pause", Err: err}
	}

	return token, nil
}

// pause waits a random human-like delay within [DelayMin, DelayMax].
func (a *Acquirer) pause(ctx context.Context) error {
	d := a.DelayMin
	if a.DelayMax > a.DelayMin {
		if a.rng == nil {
			a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		d += time.Duration(a.rng.Int63n(int64(a.DelayMax - a.DelayMin)))
	}
	if d <= 0 {
		return nil
	}
	if a.Sleep != nil {
		return a.Sleep(ctx, d)
	}
	return pace.SleepContext(ctx, d)
}

func (a *Acquirer) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now().UTC()
}

// SerializeCookies joins each cookie's name=value pair with "; ", discarding
// attribute flags. The origin accepts the token only in this exact shape.
func SerializeCookies(cookies []*http.Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}
