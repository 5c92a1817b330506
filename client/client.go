package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Client is a logged in account. It is returned by [Builder.BuildAsync]
// while the gateway session may still be connecting, and is safe for
// concurrent use.
type Client struct {
	id                    string
	accountType           AccountType
	token                 string
	logger                *slog.Logger
	tracer                trace.Tracer
	http                  *http.Client
	apiBase               *url.URL
	manager               EventManager
	wsFactory             *WebSocketFactory
	audioFactory          AudioSendFactory
	audioEnabled          bool
	autoReconnect         bool
	shutdownHook          bool
	intents               GatewayIntent
	maxReconnectDelay     time.Duration
	initialReconnectDelay time.Duration
	presence              *Presence
	sendLimiter           *rate.Limiter

	status atomic.Int32
	seq    atomic.Int64
	ping   atomic.Int64

	mu         sync.RWMutex
	selfUser   *SelfUser
	gatewayURL string
	resumeURL  string
	sessionID  string
	conn       *websocket.Conn
	identified bool
	err        error

	writeMu sync.Mutex

	ctx          context.Context
	cancel       context.CancelFunc
	ready        chan struct{}
	readyOnce    sync.Once
	done         chan struct{}
	shutdownOnce sync.Once
}

type clientConfig struct {
	accountType           AccountType
	token                 string
	logger                *slog.Logger
	tracer                trace.Tracer
	http                  *http.Client
	apiBase               *url.URL
	manager               EventManager
	wsFactory             *WebSocketFactory
	audioFactory          AudioSendFactory
	audioEnabled          bool
	autoReconnect         bool
	shutdownHook          bool
	intents               GatewayIntent
	maxReconnectDelay     time.Duration
	initialReconnectDelay time.Duration
	status                OnlineStatus
	game                  *Game
	idle                  bool
}

// Gateway sends are limited to 120 frames per 60 seconds.
const (
	gatewaySendLimit  = 120
	gatewaySendWindow = 60 * time.Second
)

func newClient(cfg clientConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	id := uuid.NewString()
	c := &Client{
		id:                    id,
		accountType:           cfg.accountType,
		token:                 cfg.token,
		logger:                cfg.logger.With("client_id", id),
		tracer:                cfg.tracer,
		http:                  cfg.http,
		apiBase:               cfg.apiBase,
		manager:               cfg.manager,
		wsFactory:             cfg.wsFactory,
		audioFactory:          cfg.audioFactory,
		audioEnabled:          cfg.audioEnabled,
		autoReconnect:         cfg.autoReconnect,
		shutdownHook:          cfg.shutdownHook,
		intents:               cfg.intents,
		maxReconnectDelay:     cfg.maxReconnectDelay,
		initialReconnectDelay: cfg.initialReconnectDelay,
		sendLimiter:           rate.NewLimiter(rate.Every(gatewaySendWindow/gatewaySendLimit), gatewaySendLimit),
		ctx:                   ctx,
		cancel:                cancel,
		ready:                 make(chan struct{}),
		done:                  make(chan struct{}),
	}
	c.presence = newPresence(c, cfg.status, cfg.game, cfg.idle)
	if c.audioEnabled && c.audioFactory == nil {
		c.audioFactory = DefaultAudioSendFactory{}
	}

	return c
}

// ID uniquely identifies this client instance in logs and traces.
func (c *Client) ID() string                         { return c.id }
func (c *Client) AccountType() AccountType           { return c.accountType }
func (c *Client) Token() string                      { return c.token }
func (c *Client) EventManager() EventManager         { return c.manager }
func (c *Client) HTTPClient() *http.Client           { return c.http }
func (c *Client) AudioSendFactory() AudioSendFactory { return c.audioFactory }
func (c *Client) AudioEnabled() bool                 { return c.audioEnabled }
func (c *Client) AutoReconnect() bool                { return c.autoReconnect }
func (c *Client) Intents() GatewayIntent             { return c.intents }
func (c *Client) Presence() *Presence                { return c.presence }
func (c *Client) Status() Status                     { return Status(c.status.Load()) }

// GatewayPing is the round trip of the last acknowledged heartbeat.
func (c *Client) GatewayPing() time.Duration {
	return time.Duration(c.ping.Load())
}

// SelfUser is the account verified at login, refreshed on READY.
func (c *Client) SelfUser() *SelfUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfUser
}

// SessionID is the id of the current gateway session, if any.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// AwaitReady blocks until the first gateway session is ready, the
// client shuts down, or ctx ends.
func (c *Client) AwaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	default:
	}

	select {
	case <-c.ready:
		return nil
	case <-c.done:
		if err := c.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrClientShutdown, err)
		}
		return ErrClientShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the client has fully shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the client, or nil when it was shut
// down on request or is still running.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Shutdown closes the gateway session and stops reconnecting. It does
// not wait; use [Client.Done] for that. Calling it more than once is a no-op.
func (c *Client) Shutdown() {
	c.shutdownOnce.Do(func() {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("client shutting down")
		c.setStatus(StatusShuttingDown)
		c.cancel()
	})
}

func (c *Client) start() {
	if c.shutdownHook {
		c.installShutdownHook()
	}

	go c.run()
}

// fail releases a client whose login did not succeed.
func (c *Client) fail() {
	c.setStatus(StatusFailedToLogin)
	c.cancel()
}

func (c *Client) finish(err error) {
	c.cancel()

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()

	c.setStatus(StatusShutdown)
	c.handle(&ShutdownEvent{baseEvent: c.base(), Err: err, Time: time.Now()})
	close(c.done)
}

func (c *Client) installShutdownHook() {
	sigCtx, stop := signal.NotifyContext(c.ctx, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer stop()
		<-sigCtx.Done()

		if c.ctx.Err() == nil {
			c.logger.Info("shutdown signal received")
			c.Shutdown()
		}
	}()
}

func (c *Client) setStatus(s Status) {
	old := Status(c.status.Swap(int32(s)))
	if old == s {
		return
	}

	c.logger.Debug("status changed", "old", old.String(), "new", s.String())
	c.handle(&StatusChangeEvent{baseEvent: c.base(), Old: old, New: s})
}

func (c *Client) handle(e Event) {
	c.manager.Handle(e)
}

func (c *Client) base() baseEvent {
	return baseEvent{client: c, seq: c.seq.Load()}
}
