package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opPresenceUpdate = 3
	opResume         = 6
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

const (
	gatewayVersion = "10"
	largeThreshold = 250
	writeWait      = 10 * time.Second
	helloWait      = 30 * time.Second
)

var (
	errReconnectRequested = errors.New("gateway requested reconnect")
	errInvalidSession     = errors.New("gateway invalidated session")
	errHeartbeatTimeout   = errors.New("heartbeat ack not received")
)

type gatewayFrame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type gatewayPayload struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type identifyPayload struct {
	Token          string             `json:"token"`
	Properties     identifyProperties `json:"properties"`
	Compress       bool               `json:"compress"`
	LargeThreshold int                `json:"large_threshold"`
	Intents        GatewayIntent      `json:"intents"`
	Presence       presenceUpdate     `json:"presence"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type resumePayload struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// heartbeatState tracks the heartbeat of a single socket.
type heartbeatState struct {
	acked    atomic.Bool
	sent     atomic.Int64
	timedOut atomic.Bool
}

// run keeps a gateway session alive until shutdown or a fatal close.
func (c *Client) run() {
	var err error
	defer func() { c.finish(err) }()

	backoff := min(c.initialReconnectDelay, c.maxReconnectDelay)
	for {
		var established bool
		established, err = c.session(c.ctx)
		if c.ctx.Err() != nil {
			err = nil
			return
		}

		c.setStatus(StatusDisconnected)
		c.handle(&DisconnectEvent{baseEvent: c.base(), Err: err, Time: time.Now()})

		var closeErr *CloseError
		if errors.As(err, &closeErr) {
			if closeErr.Fatal() {
				c.logger.Error("gateway closed with fatal code", "code", closeErr.Code, "reason", closeErr.Reason)
				return
			}
			if closeErr.invalidatesSession() {
				c.clearSession()
			}
		}

		if !c.autoReconnect {
			c.logger.Warn("gateway disconnected, auto reconnect disabled", "error", err)
			return
		}

		if established {
			backoff = min(c.initialReconnectDelay, c.maxReconnectDelay)
		}

		c.setStatus(StatusWaitingToReconnect)
		c.logger.Warn("gateway disconnected, reconnecting", "error", err, "delay", backoff.String())

		if sleepErr := sleepCtx(c.ctx, backoff); sleepErr != nil {
			err = nil
			return
		}
		backoff = min(backoff*2, c.maxReconnectDelay)

		c.setStatus(StatusAttemptingToReconnect)
	}
}

// session runs one socket from dial to close. established reports
// whether the socket reached READY or RESUMED.
func (c *Client) session(ctx context.Context) (established bool, err error) {
	ctx, span := c.tracer.Start(ctx, "gateway session", trace.WithAttributes(attribute.String("client.id", c.id)))
	defer func() {
		if err != nil && ctx.Err() == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	c.setStatus(StatusConnectingToWebsocket)

	endpoint, err := c.gatewayEndpoint()
	if err != nil {
		return false, err
	}

	conn, _, err := c.wsFactory.Dialer().DialContext(ctx, endpoint, c.wsFactory.header())
	if err != nil {
		return false, fmt.Errorf("dialing gateway: %w", err)
	}
	if c.wsFactory.ReadLimit > 0 {
		conn.SetReadLimit(c.wsFactory.ReadLimit)
	}

	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() {
		c.closeConn(conn, closeNormal, "client shutdown")
	})
	defer stop()

	interval, err := awaitHello(conn)
	if err != nil {
		return false, c.readError(ctx, nil, err)
	}
	span.AddEvent("hello", trace.WithAttributes(attribute.Int64("heartbeat_interval_ms", interval.Milliseconds())))

	hb := &heartbeatState{}
	hb.acked.Store(true)

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go c.heartbeat(hbCtx, conn, interval, hb)

	c.setStatus(StatusIdentifyingSession)
	if err := c.identifyOrResume(ctx, conn); err != nil {
		return false, err
	}
	c.setStatus(StatusAwaitingLoginConfirmation)

	for {
		var frame gatewayFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return established, c.readError(ctx, hb, err)
		}

		switch frame.Op {
		case opDispatch:
			if frame.S != nil {
				c.seq.Store(*frame.S)
			}
			if err := c.dispatch(&frame, &established); err != nil {
				return established, err
			}
		case opHeartbeat:
			if err := c.sendHeartbeat(ctx, conn, hb); err != nil {
				return established, err
			}
		case opHeartbeatAck:
			hb.acked.Store(true)
			if sent := hb.sent.Load(); sent > 0 {
				c.ping.Store(int64(time.Since(time.Unix(0, sent))))
			}
		case opReconnect:
			c.closeConn(conn, closeUnknownError, "reconnect requested")
			return established, errReconnectRequested
		case opInvalidSession:
			var resumable bool
			_ = json.Unmarshal(frame.D, &resumable)
			if !resumable {
				c.clearSession()
			}
			c.closeConn(conn, closeUnknownError, "session invalidated")
			return established, errInvalidSession
		default:
			c.logger.Debug("ignoring gateway frame", "op", frame.Op)
		}
	}
}

func (c *Client) dispatch(frame *gatewayFrame, established *bool) error {
	base := c.base()

	switch frame.T {
	case "READY":
		var ready struct {
			SessionID        string    `json:"session_id"`
			ResumeGatewayURL string    `json:"resume_gateway_url"`
			User             *SelfUser `json:"user"`
		}
		if err := json.Unmarshal(frame.D, &ready); err != nil {
			return fmt.Errorf("decoding READY: %w", err)
		}

		c.mu.Lock()
		c.sessionID = ready.SessionID
		c.resumeURL = ready.ResumeGatewayURL
		if ready.User != nil {
			c.selfUser = ready.User
		}
		reconnected := c.identified
		c.identified = true
		user := c.selfUser
		c.mu.Unlock()

		*established = true
		c.setStatus(StatusConnected)
		c.logger.Info("gateway session ready", "session_id", ready.SessionID)
		c.readyOnce.Do(func() { close(c.ready) })

		if reconnected {
			c.handle(&ReconnectedEvent{baseEvent: base, SessionID: ready.SessionID})
		} else {
			c.handle(&ReadyEvent{baseEvent: base, SessionID: ready.SessionID, User: user})
		}
	case "RESUMED":
		*established = true
		c.setStatus(StatusConnected)
		c.logger.Info("gateway session resumed", "session_id", c.SessionID())
		c.handle(&ResumedEvent{baseEvent: base})
	default:
		c.handle(&DispatchEvent{baseEvent: base, Type: frame.T, Data: frame.D})
	}

	return nil
}

func awaitHello(conn *websocket.Conn) (time.Duration, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloWait))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var frame gatewayFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return 0, err
	}
	if frame.Op != opHello {
		return 0, fmt.Errorf("expected hello, got op %d", frame.Op)
	}

	var hello struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(frame.D, &hello); err != nil {
		return 0, fmt.Errorf("decoding hello: %w", err)
	}
	if hello.HeartbeatInterval <= 0 {
		return 0, fmt.Errorf("invalid heartbeat interval %d", hello.HeartbeatInterval)
	}

	return time.Duration(hello.HeartbeatInterval) * time.Millisecond, nil
}

func (c *Client) identifyOrResume(ctx context.Context, conn *websocket.Conn) error {
	c.mu.RLock()
	sessionID := c.sessionID
	c.mu.RUnlock()

	token := strings.TrimPrefix(c.token, botTokenPrefix)

	if sessionID != "" {
		c.logger.Debug("resuming gateway session", "session_id", sessionID)
		return c.sendOn(ctx, conn, opResume, resumePayload{
			Token:     token,
			SessionID: sessionID,
			Seq:       c.seq.Load(),
		})
	}

	c.seq.Store(0)
	return c.sendOn(ctx, conn, opIdentify, identifyPayload{
		Token: token,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "botkit",
			Device:  "botkit",
		},
		LargeThreshold: largeThreshold,
		Intents:        c.intents,
		Presence:       c.presence.payload(),
	})
}

// heartbeat beats on conn until ctx ends. A beat that finds the previous
// one unacknowledged closes the socket as a zombie.
func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn, interval time.Duration, hb *heartbeatState) {
	timer := time.NewTimer(time.Duration(rand.Int64N(int64(interval))))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !hb.acked.Load() {
			hb.timedOut.Store(true)
			c.logger.Warn("heartbeat ack missed, closing connection")
			c.closeConn(conn, closeUnknownError, "heartbeat ack missed")
			return
		}

		if err := c.sendHeartbeat(ctx, conn, hb); err != nil {
			c.logger.Debug("heartbeat stopped", "error", err)
			return
		}

		timer.Reset(interval)
	}
}

func (c *Client) sendHeartbeat(ctx context.Context, conn *websocket.Conn, hb *heartbeatState) error {
	var seq any
	if s := c.seq.Load(); s > 0 {
		seq = s
	}

	hb.acked.Store(false)
	hb.sent.Store(time.Now().UnixNano())

	return c.sendOn(ctx, conn, opHeartbeat, seq)
}

// send writes a frame on the current socket.
func (c *Client) send(ctx context.Context, op int, d any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	return c.sendOn(ctx, conn, op, d)
}

func (c *Client) sendOn(ctx context.Context, conn *websocket.Conn, op int, d any) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for gateway send slot: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(gatewayPayload{Op: op, D: d}); err != nil {
		return fmt.Errorf("writing op %d: %w", op, err)
	}

	return nil
}

func (c *Client) closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// readError classifies the error that ended a read on the socket.
func (c *Client) readError(ctx context.Context, hb *heartbeatState, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if hb != nil && hb.timedOut.Load() {
		return errHeartbeatTimeout
	}

	var wsClose *websocket.CloseError
	if errors.As(err, &wsClose) {
		return &CloseError{Code: wsClose.Code, Reason: wsClose.Text}
	}

	return fmt.Errorf("reading gateway frame: %w", err)
}

func (c *Client) gatewayEndpoint() (string, error) {
	c.mu.RLock()
	base := c.gatewayURL
	if c.sessionID != "" && c.resumeURL != "" {
		base = c.resumeURL
	}
	c.mu.RUnlock()

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing gateway url: %w", err)
	}

	q := u.Query()
	q.Set("v", gatewayVersion)
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.resumeURL = ""
	c.mu.Unlock()
	c.seq.Store(0)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
