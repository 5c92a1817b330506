package throttle

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// maxRetryAfter caps how long a single 429 response may stall a request.
const maxRetryAfter = 60 * time.Second

// Config defines the throttler's Requests Per Second, Burst rate
// and how many times a 429 response is retried.
type Config struct {
	RPS        int
	Burst      int
	MaxRetries int
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter    *rate.Limiter
	rps        int
	burst      int
	maxRetries int
	next       http.RoundTripper
	logFn      func() *slog.Logger
}
