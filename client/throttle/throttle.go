package throttle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// NewRoundTripper returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter. logFn lazily resolves the logger at request
// time, making builder call ordering irrelevant. A nil-returning logFn skips the
// calls to *Limiter.Allow().
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", cfg.RPS, cfg.Burst, ErrMustNotBeZero)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative: %d", cfg.MaxRetries)
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		rps:        cfg.RPS,
		burst:      cfg.Burst,
		maxRetries: cfg.MaxRetries,
		next:       next,
		logFn:      logFn,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := t.wait(r); err != nil {
			return nil, err
		}

		resp, err := t.next.RoundTrip(r)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxRetries {
			return resp, nil
		}

		next, ok := rewind(r)
		if !ok {
			return resp, nil
		}

		delay := retryAfter(resp.Header)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if logger := t.logFn(); logger != nil {
			logger.Warn("rate limited by remote", "path", r.URL.Path, "retry_after", delay.String(), "attempt", attempt+1)
		}

		if err := sleep(r.Context(), delay); err != nil {
			return nil, fmt.Errorf("%w during retry-after: %w", ErrContextEnded, err)
		}

		r = next
	}
}

// wait blocks until the local token bucket admits r.
func (t *throttle) wait(r *http.Request) error {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	var waited time.Duration
	logger := t.logFn()
	if logger != nil && !t.limiter.Allow() {
		logger.Info("throttle tokens exhausted", "rate", t.rps, "burst", t.burst, "path", r.URL.Path)

		defer func() {
			logger.Info("throttle wait complete", "waited", waited.String(), "rate", t.rps, "burst", t.burst)
		}()
	}

	start := time.Now()

	err := t.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}

// rewind returns a copy of r with a fresh body, or false when the
// body has already been consumed and cannot be recreated.
func rewind(r *http.Request) (*http.Request, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return r, true
	}
	if r.GetBody == nil {
		return nil, false
	}

	body, err := r.GetBody()
	if err != nil {
		return nil, false
	}

	cpy := r.Clone(r.Context())
	cpy.Body = body

	return cpy, true
}

// retryAfter reads the delay from Retry-After, accepting fractional seconds.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return time.Second
	}

	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return time.Second
	}

	return min(time.Duration(secs*float64(time.Second)), maxRetryAfter)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
