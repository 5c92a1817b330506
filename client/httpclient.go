package client

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/botkit/client/throttle"
)

// DefaultUserAgent identifies REST calls made by this library.
const DefaultUserAgent = "DiscordBot (https://github.com/adamwoolhether/botkit, 1.0)"

// HTTPClientBuilder carries the settings of the REST client.
// [HTTPClientBuilder.Build] turns it into an [http.Client] once per
// [Builder.BuildAsync].
type HTTPClientBuilder struct {
	// Client replaces the base [http.Client]. Its Transport is used
	// unless Transport is also set.
	Client            *http.Client
	Transport         http.RoundTripper
	Timeout           time.Duration
	UserAgent         string
	Throttle          *throttle.Config
	NoFollowRedirects bool
	// Logger receives throttle diagnostics. When nil, the logger of the
	// owning client is used.
	Logger *slog.Logger
}

// NewHTTPClientBuilder returns a builder with the platform defaults:
// a 30s timeout and a 50 requests per second global bucket.
func NewHTTPClientBuilder() *HTTPClientBuilder {
	return &HTTPClientBuilder{
		Timeout:   30 * time.Second,
		UserAgent: DefaultUserAgent,
		Throttle:  &throttle.Config{RPS: 50, Burst: 50, MaxRetries: 2},
	}
}

// SetThrottle replaces the token bucket settings.
func (hb *HTTPClientBuilder) SetThrottle(rps, burst int) *HTTPClientBuilder {
	retries := 0
	if hb.Throttle != nil {
		retries = hb.Throttle.MaxRetries
	}
	hb.Throttle = &throttle.Config{RPS: rps, Burst: burst, MaxRetries: retries}
	return hb
}

// Build creates the [http.Client]. The base client is copied so the
// caller's value is never mutated.
func (hb *HTTPClientBuilder) Build() (*http.Client, error) {
	return hb.build(func() *slog.Logger { return hb.Logger })
}

func (hb *HTTPClientBuilder) build(logFn func() *slog.Logger) (*http.Client, error) {
	if hb.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}

	hc := &http.Client{}
	if hb.Client != nil {
		cpy := *hb.Client
		hc = &cpy
	}

	if hb.Timeout > 0 {
		hc.Timeout = hb.Timeout
	}

	if hb.NoFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case hb.Transport != nil:
		transport = hb.Transport
	case hc.Transport != nil:
		transport = hc.Transport
	default:
		transport = http.DefaultTransport
	}
	if hb.UserAgent != "" {
		transport = userAgent{value: hb.UserAgent, base: transport}
	}
	if hb.Throttle != nil {
		rt, err := throttle.NewRoundTripper(*hb.Throttle, logFn, transport)
		if err != nil {
			return nil, err
		}
		transport = rt
	}
	hc.Transport = transport

	return hc, nil
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
