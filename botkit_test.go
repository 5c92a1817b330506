package botkit_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/botkit"
	"github.com/adamwoolhether/botkit/client"
	"github.com/adamwoolhether/botkit/internal/gatewaytest"
)

// botBuilder is a caller-defined builder type.
type botBuilder struct {
	*client.Builder
	prefix string
}

type listener struct{ name string }

func (*listener) OnEvent(client.Event) {}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// counted wraps v in a producer and reports how often it ran.
func counted[T any](v T) (func() T, *int) {
	var calls int
	return func() T {
		calls++
		return v
	}, &calls
}

func TestAdapters_ReturnReceiver(t *testing.T) {
	b := client.NewBuilder(client.AccountBot)

	results := map[string]*client.Builder{
		"token":        botkit.Token(b, func() string { return "t" }),
		"watching":     botkit.Watching(b, func() string { return "w" }),
		"listening":    botkit.Listening(b, func() string { return "l" }),
		"playing":      botkit.Playing(b, func() string { return "p" }),
		"streaming":    botkit.Streaming(b, "s", "https://twitch.tv/s"),
		"status":       botkit.Status(b, func() client.OnlineStatus { return client.Idle }),
		"manager":      botkit.Manager(b, func() client.EventManager { return nil }),
		"listener":     botkit.Listener(b, func() any { return &listener{} }),
		"audioFactory": botkit.AudioSendFactory(b, func() client.AudioSendFactory { return nil }),
		"intents":      botkit.Intents(b, func() client.GatewayIntent { return client.IntentGuilds }),
		"logger":       botkit.Logger(b, quietLogger),
		"tracer":       botkit.Tracer(b, noopTracer),
		"idle":         botkit.Idle(b, true),
		"hook":         botkit.ShutdownHook(b, false),
		"audio":        botkit.Audio(b, false),
		"reconnect":    botkit.AutoReconnect(b, false),
		"websocket":    botkit.WebsocketSettings(b, func(*client.WebSocketFactory) {}),
		"http":         botkit.HTTPSettings(b, func(*client.HTTPClientBuilder) {}),
		"listeners":    botkit.Listeners(b, &listener{}),
		"remove":       botkit.RemoveListeners(b),
	}

	for name, got := range results {
		if got != b {
			t.Errorf("%s: exp the same builder back", name)
		}
	}
}

func TestAdapters_KeepCallerType(t *testing.T) {
	base := client.NewBuilder(client.AccountBot)

	t.Run("value", func(t *testing.T) {
		custom := botBuilder{Builder: base, prefix: "!"}

		got := botkit.Idle(botkit.Token(custom, func() string { return "t" }), true)
		if got.prefix != "!" || got.Builder != base {
			t.Errorf("exp the same botBuilder back, got %+v", got)
		}
	})

	t.Run("pointer", func(t *testing.T) {
		custom := &botBuilder{Builder: base, prefix: "?"}

		got := botkit.Playing(custom, func() string { return "chess" })
		if got != custom {
			t.Error("exp the same *botBuilder back")
		}
	})

	if base.Token() != "t" || !base.Idle() || base.Game().Name != "chess" {
		t.Error("adapters must configure the embedded builder")
	}
}

func TestAdapters_ForwardValues(t *testing.T) {
	b := client.NewBuilder(client.AccountBot)

	token, tokenCalls := counted("secret")
	status, statusCalls := counted(client.DoNotDisturb)
	intents, intentCalls := counted(client.IntentGuilds | client.IntentGuildMessages)
	manager := client.NewInterfacedEventManager(nil)
	managerFn, managerCalls := counted[client.EventManager](manager)
	logger := quietLogger()
	loggerFn, loggerCalls := counted(logger)
	factory := client.DefaultAudioSendFactory{}
	factoryFn, factoryCalls := counted[client.AudioSendFactory](factory)

	botkit.Token(b, token)
	botkit.Status(b, status)
	botkit.Intents(b, intents)
	botkit.Manager(b, managerFn)
	botkit.Logger(b, loggerFn)
	botkit.AudioSendFactory(b, factoryFn)
	botkit.Idle(b, true)
	botkit.ShutdownHook(b, false)
	botkit.Audio(b, false)
	botkit.AutoReconnect(b, false)

	for name, calls := range map[string]*int{
		"token": tokenCalls, "status": statusCalls, "intents": intentCalls,
		"manager": managerCalls, "logger": loggerCalls, "factory": factoryCalls,
	} {
		if *calls != 1 {
			t.Errorf("%s: exp producer called once, got %d", name, *calls)
		}
	}

	if b.Token() != "secret" || b.Status() != client.DoNotDisturb || b.Intents() != client.IntentGuilds|client.IntentGuildMessages {
		t.Error("scalar values not forwarded")
	}
	if b.EventManager() != manager || b.Logger() != logger || b.AudioSendFactory() != factory {
		t.Error("references not forwarded")
	}
	if !b.Idle() || b.ShutdownHookEnabled() || b.AudioEnabled() || b.AutoReconnect() {
		t.Error("flags not forwarded")
	}
}

func TestAdapters_Games(t *testing.T) {
	testCases := map[string]struct {
		apply func(*client.Builder)
		exp   client.Game
	}{
		"watching": {
			apply: func(b *client.Builder) { botkit.Watching(b, func() string { return "logs" }) },
			exp:   client.Game{Name: "logs", Type: client.GameWatching},
		},
		"listening": {
			apply: func(b *client.Builder) { botkit.Listening(b, func() string { return "rain" }) },
			exp:   client.Game{Name: "rain", Type: client.GameListening},
		},
		"playing": {
			apply: func(b *client.Builder) { botkit.Playing(b, func() string { return "chess" }) },
			exp:   client.Game{Name: "chess", Type: client.GamePlaying},
		},
		"streaming": {
			apply: func(b *client.Builder) { botkit.Streaming(b, "run", "https://twitch.tv/run") },
			exp:   client.Game{Name: "run", Type: client.GameStreaming, URL: "https://twitch.tv/run"},
		},
		"streamingInvalidURL": {
			apply: func(b *client.Builder) { botkit.Streaming(b, "run", "ftp://nowhere") },
			exp:   client.Game{Name: "run", Type: client.GamePlaying},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			b := client.NewBuilder(client.AccountBot)
			tc.apply(b)

			if diff := cmp.Diff(tc.exp, *b.Game()); diff != "" {
				t.Errorf("game mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScopedSettings_FreshPerCall(t *testing.T) {
	b := client.NewBuilder(client.AccountBot)

	var factories []*client.WebSocketFactory
	for range 2 {
		botkit.WebsocketSettings(b, func(f *client.WebSocketFactory) {
			f.ConnectionTimeout = time.Second
			factories = append(factories, f)
		})
	}
	if factories[0] == factories[1] {
		t.Error("exp a fresh websocket factory per call")
	}
	if b.WebsocketFactory() != factories[1] || b.WebsocketFactory().ConnectionTimeout != time.Second {
		t.Error("exp the last configured factory registered")
	}

	var builders []*client.HTTPClientBuilder
	for range 2 {
		botkit.HTTPSettings(b, func(hb *client.HTTPClientBuilder) {
			hb.UserAgent = "test/1.0"
			builders = append(builders, hb)
		})
	}
	if builders[0] == builders[1] {
		t.Error("exp a fresh http builder per call")
	}
	if b.HTTPClientBuilder() != builders[1] || b.HTTPClientBuilder().UserAgent != "test/1.0" {
		t.Error("exp the last configured http builder registered")
	}
}

func TestListeners(t *testing.T) {
	a, b2, c := &listener{name: "a"}, &listener{name: "b"}, &listener{name: "c"}

	b := client.NewBuilder(client.AccountBot)
	botkit.Listeners(b, a, b2)
	botkit.Add(b, c)
	botkit.Add(b, a)
	botkit.Remove(b, a)
	botkit.RemoveListeners(b, c, &listener{name: "never added"})

	got := b.Listeners()
	want := []any{b2, a}
	if len(got) != len(want) {
		t.Fatalf("exp %d listeners, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("listener %d: exp %v, got %v", i, want[i], got[i])
		}
	}
}

// fakeBuilder records the order of configuration and build.
type fakeBuilder struct {
	*client.Builder
	calls []string
}

func (f *fakeBuilder) BuildAsync() (*client.Client, error) {
	f.calls = append(f.calls, "build")
	return nil, nil
}

func TestBuild_InitBeforeBuild(t *testing.T) {
	f := &fakeBuilder{Builder: client.NewBuilder(client.AccountUser)}

	_, err := botkit.Build(f, func(b *fakeBuilder) {
		b.calls = append(b.calls, "init")
		botkit.Token(b, func() string { return "t" })
	})
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	if diff := cmp.Diff([]string{"init", "build"}, f.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	if f.Token() != "t" {
		t.Error("init did not configure the builder")
	}
}

func TestBuild_NilInit(t *testing.T) {
	f := &fakeBuilder{Builder: client.NewBuilder(client.AccountBot)}

	if _, err := botkit.Build(f, nil); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("exp a single build, got %v", f.calls)
	}
}

func TestNew_MissingToken(t *testing.T) {
	_, err := botkit.New(client.AccountBot, func(b *client.Builder) {
		botkit.ShutdownHook(b, false)
	})

	var fields client.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("exp FieldErrors, got %T: %v", err, err)
	}
	if diff := cmp.Diff([]string{"token"}, fields.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Connects(t *testing.T) {
	srv := gatewaytest.New("secret")
	t.Cleanup(srv.Close)

	ready := make(chan *client.ReadyEvent, 1)
	l := client.EventListenerFunc(func(e client.Event) {
		if r, ok := e.(*client.ReadyEvent); ok {
			ready <- r
		}
	})

	c, err := botkit.New(client.AccountBot, func(b *client.Builder) {
		botkit.Token(b, func() string { return "secret" })
		botkit.Status(b, func() client.OnlineStatus { return client.Idle })
		botkit.Logger(b, quietLogger)
		botkit.Tracer(b, noopTracer)
		botkit.ShutdownHook(b, false)
		botkit.Add(b, l)
		b.SetAPIBaseURL(srv.APIURL())
	})
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	t.Cleanup(func() {
		c.Shutdown()
		<-c.Done()
	})

	select {
	case r := <-ready:
		if r.SessionID == "" {
			t.Error("exp a session id")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ready")
	}

	if c.Presence().Status() != client.Idle {
		t.Errorf("exp idle presence, got %q", c.Presence().Status())
	}
	if c.AccountType() != client.AccountBot {
		t.Errorf("exp bot account, got %v", c.AccountType())
	}
}
