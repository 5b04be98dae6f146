// Package upstream builds the shared HTTP client used for every request to
// the exchange origin, handshake and data calls alike.
package upstream

import (
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/pcrwatch/pcrwatch/internal/core/pace"
)

// DefaultUserAgent mirrors a current desktop Chrome. The origin rejects
// clients that do not look like a real browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Options configures the upstream client.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Governor  *pace.Governor
}

// NewClient returns a resty client with browser-like headers, an anti-bot
// transport wrapper, a hard per-request timeout, and the shared rate
// governor gating every outbound request.
func NewClient(opts Options) *resty.Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client.SetHeader("User-Agent", ua)
	client.SetHeader("Accept", "*/*")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	client.SetHeader("Connection", "keep-alive")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	if opts.Governor != nil {
		governor := opts.Governor
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return governor.Gate(req.Context())
		})
	}

	return client
}
