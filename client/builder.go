package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultAPIBaseURL is the REST root of the platform.
const DefaultAPIBaseURL = "https://discord.com/api/v10"

// settings are the validated scalar values of a Builder.
type settings struct {
	Token             string        `setting:"token" validate:"required"`
	Status            OnlineStatus  `setting:"status" validate:"oneof=online idle dnd invisible offline"`
	APIBaseURL        string        `setting:"api_base_url" validate:"required,url"`
	Intents           GatewayIntent `setting:"intents" validate:"gte=0"`
	MaxReconnectDelay time.Duration `setting:"max_reconnect_delay" validate:"gt=0"`
}

// Builder accumulates the configuration of a [Client]. Setters return
// the receiver so calls can be chained. A Builder is not safe for
// concurrent use; it is meant to be owned by one goroutine until
// [Builder.BuildAsync] is called.
type Builder struct {
	accountType AccountType
	settings    settings

	game          *Game
	idle          bool
	manager       EventManager
	listeners     []any
	audioFactory  AudioSendFactory
	audio         bool
	autoReconnect bool
	shutdownHook  bool
	wsFactory     *WebSocketFactory
	httpBuilder   *HTTPClientBuilder
	logger        *slog.Logger
	tracer        trace.Tracer

	// first reconnect delay, doubled per failed attempt
	initialReconnectDelay time.Duration
}

// NewBuilder returns a Builder for the given account type. Audio,
// auto-reconnect and the shutdown hook are enabled by default.
func NewBuilder(accountType AccountType) *Builder {
	return &Builder{
		accountType: accountType,
		settings: settings{
			Status:            Online,
			APIBaseURL:        DefaultAPIBaseURL,
			Intents:           IntentsDefault,
			MaxReconnectDelay: 900 * time.Second,
		},
		audio:         true,
		autoReconnect: true,
		shutdownHook:  true,

		initialReconnectDelay: time.Second,
	}
}

// ClientBuilder returns b. It lets types embedding *Builder be used
// wherever a builder is expected while keeping their own static type.
func (b *Builder) ClientBuilder() *Builder { return b }

func (b *Builder) SetToken(token string) *Builder {
	b.settings.Token = token
	return b
}

// SetGame sets the activity shown on login; nil clears it.
func (b *Builder) SetGame(game *Game) *Builder {
	b.game = game
	return b
}

// SetStatus sets the online status used on login. [UnknownStatus] fails
// validation in [Builder.BuildAsync].
func (b *Builder) SetStatus(status OnlineStatus) *Builder {
	b.settings.Status = status
	return b
}

func (b *Builder) SetIdle(idle bool) *Builder {
	b.idle = idle
	return b
}

// SetEventManager replaces the default [InterfacedEventManager].
func (b *Builder) SetEventManager(manager EventManager) *Builder {
	b.manager = manager
	return b
}

// AddEventListener appends listeners in order. They are registered on
// the event manager by [Builder.BuildAsync].
func (b *Builder) AddEventListener(listeners ...any) *Builder {
	b.listeners = append(b.listeners, listeners...)
	return b
}

// RemoveEventListener removes, for each argument, the first equal
// listener previously added.
func (b *Builder) RemoveEventListener(listeners ...any) *Builder {
	for _, l := range listeners {
		if i := indexOf(b.listeners, l); i >= 0 {
			b.listeners = slices.Delete(b.listeners, i, i+1)
		}
	}
	return b
}

func (b *Builder) SetAudioSendFactory(factory AudioSendFactory) *Builder {
	b.audioFactory = factory
	return b
}

func (b *Builder) SetAudioEnabled(enabled bool) *Builder {
	b.audio = enabled
	return b
}

func (b *Builder) SetAutoReconnect(reconnect bool) *Builder {
	b.autoReconnect = reconnect
	return b
}

// SetEnableShutdownHook makes the client shut down on SIGINT or SIGTERM.
func (b *Builder) SetEnableShutdownHook(enable bool) *Builder {
	b.shutdownHook = enable
	return b
}

func (b *Builder) SetWebsocketFactory(factory *WebSocketFactory) *Builder {
	b.wsFactory = factory
	return b
}

func (b *Builder) SetHTTPClientBuilder(builder *HTTPClientBuilder) *Builder {
	b.httpBuilder = builder
	return b
}

func (b *Builder) SetIntents(intents GatewayIntent) *Builder {
	b.settings.Intents = intents
	return b
}

func (b *Builder) SetLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) SetTracer(tracer trace.Tracer) *Builder {
	b.tracer = tracer
	return b
}

// SetAPIBaseURL points the client at a different REST root, such as a
// platform-compatible server or a test double.
func (b *Builder) SetAPIBaseURL(baseURL string) *Builder {
	b.settings.APIBaseURL = baseURL
	return b
}

// SetMaxReconnectDelay caps the exponential reconnect backoff.
func (b *Builder) SetMaxReconnectDelay(d time.Duration) *Builder {
	b.settings.MaxReconnectDelay = d
	return b
}

func (b *Builder) AccountType() AccountType              { return b.accountType }
func (b *Builder) Token() string                         { return b.settings.Token }
func (b *Builder) Game() *Game                           { return b.game }
func (b *Builder) Status() OnlineStatus                  { return b.settings.Status }
func (b *Builder) Idle() bool                            { return b.idle }
func (b *Builder) EventManager() EventManager            { return b.manager }
func (b *Builder) AudioSendFactory() AudioSendFactory    { return b.audioFactory }
func (b *Builder) AudioEnabled() bool                    { return b.audio }
func (b *Builder) AutoReconnect() bool                   { return b.autoReconnect }
func (b *Builder) ShutdownHookEnabled() bool             { return b.shutdownHook }
func (b *Builder) WebsocketFactory() *WebSocketFactory   { return b.wsFactory }
func (b *Builder) HTTPClientBuilder() *HTTPClientBuilder { return b.httpBuilder }
func (b *Builder) Intents() GatewayIntent                { return b.settings.Intents }
func (b *Builder) Logger() *slog.Logger                  { return b.logger }
func (b *Builder) APIBaseURL() string                    { return b.settings.APIBaseURL }
func (b *Builder) MaxReconnectDelay() time.Duration      { return b.settings.MaxReconnectDelay }
func (b *Builder) Tracer() trace.Tracer                  { return b.tracer }

// Listeners returns a copy of the listeners added so far, in order.
func (b *Builder) Listeners() []any {
	return slices.Clone(b.listeners)
}

// BuildAsync validates the configuration, verifies the token against
// the REST API and resolves the gateway. It then returns the [Client]
// while the gateway session is established in the background. Use
// [Client.AwaitReady] to wait for the session.
func (b *Builder) BuildAsync() (*Client, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("validating builder: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := b.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	hb := b.httpBuilder
	if hb == nil {
		hb = NewHTTPClientBuilder()
	}
	hc, err := hb.build(func() *slog.Logger {
		if hb.Logger != nil {
			return hb.Logger
		}
		return logger
	})
	if err != nil {
		return nil, fmt.Errorf("building http client: %w", err)
	}

	apiBase, err := url.Parse(b.settings.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}

	manager := b.manager
	if manager == nil {
		manager = NewInterfacedEventManager(logger)
	}
	registered := make([]any, 0, len(b.listeners))
	unregister := func() {
		for _, l := range slices.Backward(registered) {
			manager.Unregister(l)
		}
	}
	for _, l := range b.listeners {
		if err := manager.Register(l); err != nil {
			unregister()
			return nil, fmt.Errorf("registering listener: %w", err)
		}
		registered = append(registered, l)
	}

	ws := b.wsFactory
	if ws == nil {
		ws = NewWebSocketFactory()
	}

	c := newClient(clientConfig{
		accountType:           b.accountType,
		token:                 b.settings.Token,
		logger:                logger,
		tracer:                tracer,
		http:                  hc,
		apiBase:               apiBase,
		manager:               manager,
		wsFactory:             ws,
		audioFactory:          b.audioFactory,
		audioEnabled:          b.audio,
		autoReconnect:         b.autoReconnect,
		shutdownHook:          b.shutdownHook,
		intents:               b.settings.Intents,
		maxReconnectDelay:     b.settings.MaxReconnectDelay,
		initialReconnectDelay: b.initialReconnectDelay,
		status:                b.settings.Status,
		game:                  b.game,
		idle:                  b.idle,
	})

	if err := c.login(context.Background()); err != nil {
		c.fail()
		unregister()
		return nil, err
	}

	c.start()

	return c, nil
}

func (b *Builder) validate() error {
	var fields FieldErrors
	if err := validateSettings(b.settings); err != nil && !errors.As(err, &fields) {
		return err
	}

	if b.game != nil && b.game.Type == GameStreaming && !IsValidStreamingURL(b.game.URL) {
		fields = append(fields, FieldError{Field: "game.url", Err: "a streaming game needs a Twitch or YouTube url"})
	}

	if len(fields) > 0 {
		return fields
	}
	return nil
}

// BuildBlocking is [Builder.BuildAsync] followed by [Client.AwaitReady].
// The client is shut down if ctx ends before the session is ready.
func (b *Builder) BuildBlocking(ctx context.Context) (*Client, error) {
	c, err := b.BuildAsync()
	if err != nil {
		return nil, err
	}

	if err := c.AwaitReady(ctx); err != nil {
		c.Shutdown()
		return nil, err
	}

	return c, nil
}
