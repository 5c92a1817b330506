// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound REST calls to the chat platform using a token-bucket
// algorithm from [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 50, Burst: 50, MaxRetries: 2},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When the local bucket is empty, outbound requests block until a
// token becomes available or the request context is cancelled.
//
// When the platform itself answers 429 Too Many Requests, the round
// tripper honors the Retry-After header and replays the request up to
// Config.MaxRetries times. Requests whose body cannot be replayed are
// returned as-is.
package throttle
