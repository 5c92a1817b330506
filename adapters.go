package botkit

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/botkit/client"
)

// Configurable is satisfied by *client.Builder and, through promotion, by
// any type embedding it. Adapters are generic over it so they return the
// caller's type rather than *client.Builder.
type Configurable interface {
	ClientBuilder() *client.Builder
}

// Token calls [client.Builder.SetToken] with the value produced by token.
func Token[B Configurable](b B, token func() string) B {
	b.ClientBuilder().SetToken(token())
	return b
}

// Watching sets a watching activity named by name.
func Watching[B Configurable](b B, name func() string) B {
	b.ClientBuilder().SetGame(client.Watching(name()))
	return b
}

// Listening sets a listening activity named by name.
func Listening[B Configurable](b B, name func() string) B {
	b.ClientBuilder().SetGame(client.Listening(name()))
	return b
}

// Playing sets a playing activity named by name.
func Playing[B Configurable](b B, name func() string) B {
	b.ClientBuilder().SetGame(client.Playing(name()))
	return b
}

// Streaming sets a streaming activity. See [client.Streaming] for url rules.
func Streaming[B Configurable](b B, name, url string) B {
	b.ClientBuilder().SetGame(client.Streaming(name, url))
	return b
}

// Status sets the online status produced by status.
func Status[B Configurable](b B, status func() client.OnlineStatus) B {
	b.ClientBuilder().SetStatus(status())
	return b
}

// Manager replaces the event manager with the one produced by manager.
func Manager[B Configurable](b B, manager func() client.EventManager) B {
	b.ClientBuilder().SetEventManager(manager())
	return b
}

// Listener adds the single listener produced by listener.
func Listener[B Configurable](b B, listener func() any) B {
	b.ClientBuilder().AddEventListener(listener())
	return b
}

// AudioSendFactory sets the factory producing audio send systems.
func AudioSendFactory[B Configurable](b B, factory func() client.AudioSendFactory) B {
	b.ClientBuilder().SetAudioSendFactory(factory())
	return b
}

// Intents sets the gateway intents sent on identify.
func Intents[B Configurable](b B, intents func() client.GatewayIntent) B {
	b.ClientBuilder().SetIntents(intents())
	return b
}

// Logger sets the client logger.
func Logger[B Configurable](b B, logger func() *slog.Logger) B {
	b.ClientBuilder().SetLogger(logger())
	return b
}

// Tracer sets the tracer used for REST and gateway spans.
func Tracer[B Configurable](b B, tracer func() trace.Tracer) B {
	b.ClientBuilder().SetTracer(tracer())
	return b
}

// Idle marks the presence as idle (AFK).
func Idle[B Configurable](b B, idle bool) B {
	b.ClientBuilder().SetIdle(idle)
	return b
}

// ShutdownHook enables or disables shutdown on SIGINT and SIGTERM.
func ShutdownHook[B Configurable](b B, enable bool) B {
	b.ClientBuilder().SetEnableShutdownHook(enable)
	return b
}

// Audio enables or disables audio.
func Audio[B Configurable](b B, enabled bool) B {
	b.ClientBuilder().SetAudioEnabled(enabled)
	return b
}

// AutoReconnect controls whether a dropped gateway session is reopened.
func AutoReconnect[B Configurable](b B, reconnect bool) B {
	b.ClientBuilder().SetAutoReconnect(reconnect)
	return b
}

// WebsocketSettings hands a new [client.WebSocketFactory] to init and
// registers it once init returns.
func WebsocketSettings[B Configurable](b B, init func(*client.WebSocketFactory)) B {
	factory := client.NewWebSocketFactory()
	init(factory)
	b.ClientBuilder().SetWebsocketFactory(factory)
	return b
}

// HTTPSettings hands a new [client.HTTPClientBuilder] to init and
// registers it once init returns.
func HTTPSettings[B Configurable](b B, init func(*client.HTTPClientBuilder)) B {
	hb := client.NewHTTPClientBuilder()
	init(hb)
	b.ClientBuilder().SetHTTPClientBuilder(hb)
	return b
}

// Listeners forwards to [client.Builder.AddEventListener].
func Listeners[B Configurable](b B, listeners ...any) B {
	b.ClientBuilder().AddEventListener(listeners...)
	return b
}

// RemoveListeners forwards to [client.Builder.RemoveEventListener].
func RemoveListeners[B Configurable](b B, listeners ...any) B {
	b.ClientBuilder().RemoveEventListener(listeners...)
	return b
}

// Add registers one listener. It is the statement form of [Listeners].
func Add[B Configurable](b B, listener any) {
	Listeners(b, listener)
}

// Remove unregisters one listener. It is the statement form of [RemoveListeners].
func Remove[B Configurable](b B, listener any) {
	RemoveListeners(b, listener)
}
