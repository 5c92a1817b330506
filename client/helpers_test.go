package client_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/botkit/client"
	"github.com/adamwoolhether/botkit/internal/gatewaytest"
)

const testToken = "test-token"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newServer starts a platform double closed after every client cleanup
// registered later in the test.
func newServer(t *testing.T, opts ...gatewaytest.Option) *gatewaytest.Server {
	t.Helper()

	srv := gatewaytest.New(testToken, opts...)
	t.Cleanup(srv.Close)
	return srv
}

func newTestBuilder(srv *gatewaytest.Server) *client.Builder {
	return client.NewBuilder(client.AccountBot).
		SetToken(srv.Token).
		SetAPIBaseURL(srv.APIURL()).
		SetEnableShutdownHook(false).
		SetMaxReconnectDelay(50 * time.Millisecond).
		SetLogger(quietLogger())
}

// recorder is an EventListener keeping every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []client.Event
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 1)}
}

func (r *recorder) OnEvent(e client.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recorder) snapshot() []client.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]client.Event(nil), r.events...)
}

// waitEvent returns the first recorded event of type T matching match.
func waitEvent[T client.Event](t *testing.T, r *recorder, match func(T) bool) T {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		for _, e := range r.snapshot() {
			if typed, ok := e.(T); ok && (match == nil || match(typed)) {
				return typed
			}
		}

		select {
		case <-r.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func countEvents[T client.Event](r *recorder) int {
	n := 0
	for _, e := range r.snapshot() {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}
