// Package gatewaytest runs an in-process double of the chat platform: the
// REST routes used at login, a message route, and a JSON gateway socket.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// APIPath is the REST root served by the double.
const APIPath = "/api/v10"

// Frame is a gateway frame as seen by the server.
type Frame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// Message is a message posted through the REST API.
type Message struct {
	ChannelID string
	Content   string
}

// Request is a REST call as seen by the server.
type Request struct {
	Method        string
	Path          string
	Authorization string
	UserAgent     string
}

// Server is the platform double.
type Server struct {
	*httptest.Server

	Token    string
	Username string

	heartbeatInterval time.Duration
	skipAcks          bool
	rejectSockets     int
	rejectCode        int

	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*conn
	frames   []Frame
	messages []Message
	requests []Request
	sessions int
	seq      int64
	dials    []time.Time
	notify   chan struct{}
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Option configures a Server before it starts.
type Option func(*Server)

// WithHeartbeatInterval sets the interval announced in HELLO.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Server) { s.heartbeatInterval = d }
}

// WithoutAcks stops the server from acknowledging heartbeats.
func WithoutAcks() Option {
	return func(s *Server) { s.skipAcks = true }
}

// WithRejectedSockets makes the server close the first n sockets with
// code right after HELLO.
func WithRejectedSockets(n, code int) Option {
	return func(s *Server) {
		s.rejectSockets = n
		s.rejectCode = code
	}
}

// New starts a server accepting token.
func New(token string, opts ...Option) *Server {
	s := &Server{
		Token:             token,
		Username:          "botkit-test",
		heartbeatInterval: 45 * time.Second,
		notify:            make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()

	api := newRouter(mux, APIPath, errorsMW(), panicsMW(), s.record)
	api.get("/users/@me", s.handleSelf, s.authed)
	api.get("/gateway/bot", s.handleGateway, s.authed)
	api.get("/gateway", s.handleGateway)
	api.post("/channels/{id}/messages", s.handleMessage, s.authed)

	mux.HandleFunc("GET /ws", s.handleSocket)

	s.Server = httptest.NewServer(mux)

	return s
}

// Close closes every socket with 1001 and shuts the server down.
func (s *Server) Close() {
	s.CloseAll(websocket.CloseGoingAway, "server closing")
	s.Server.Close()
}

// APIURL is the value to pass to SetAPIBaseURL.
func (s *Server) APIURL() string {
	return s.URL + APIPath
}

func (s *Server) gatewayURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func (s *Server) record(next handler) handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			UserAgent:     r.Header.Get("User-Agent"),
		})
		s.mu.Unlock()

		return next(w, r)
	}
}

func (s *Server) authed(next handler) handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		auth := r.Header.Get("Authorization")
		if auth != "Bot "+s.Token && auth != s.Token {
			return newAPIError(http.StatusUnauthorized, 0, "401: Unauthorized")
		}
		return next(w, r)
	}
}

func (s *Server) handleSelf(w http.ResponseWriter, _ *http.Request) error {
	return respondJSON(w, http.StatusOK, s.self())
}

func (s *Server) handleGateway(w http.ResponseWriter, _ *http.Request) error {
	return respondJSON(w, http.StatusOK, map[string]any{"url": s.gatewayURL(), "shards": 1})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return newAPIError(http.StatusBadRequest, 50109, "The request body contains invalid JSON.")
	}
	if body.Content == "" {
		return newAPIError(http.StatusBadRequest, 50006, "Cannot send an empty message")
	}

	msg := Message{ChannelID: r.PathValue("id"), Content: body.Content}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.signal()

	return respondJSON(w, http.StatusOK, map[string]any{"id": "1", "channel_id": msg.ChannelID, "content": msg.Content})
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &conn{ws: ws}
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.dials = append(s.dials, time.Now())
	reject := len(s.dials) <= s.rejectSockets
	s.mu.Unlock()
	s.signal()

	defer func() {
		s.mu.Lock()
		for i, other := range s.conns {
			if other == c {
				s.conns = append(s.conns[:i], s.conns[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		_ = ws.Close()
	}()

	hello := map[string]any{"heartbeat_interval": s.heartbeatInterval.Milliseconds()}
	if err := c.write(map[string]any{"op": 10, "d": hello}); err != nil {
		return
	}

	if reject {
		msg := websocket.FormatCloseMessage(s.rejectCode, "rejected")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}

	for {
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			return
		}

		s.mu.Lock()
		s.frames = append(s.frames, f)
		s.mu.Unlock()
		s.signal()

		switch f.Op {
		case 1:
			if !s.skipAcks {
				_ = c.write(map[string]any{"op": 11})
			}
		case 2:
			s.mu.Lock()
			s.sessions++
			id := fmt.Sprintf("session-%d", s.sessions)
			s.mu.Unlock()
			_ = s.dispatchTo(c, "READY", map[string]any{
				"v":                  10,
				"session_id":         id,
				"resume_gateway_url": s.gatewayURL(),
				"user":               s.self(),
			})
		case 6:
			_ = s.dispatchTo(c, "RESUMED", map[string]any{})
		}
	}
}

func (s *Server) self() map[string]any {
	return map[string]any{"id": "42", "username": s.Username, "discriminator": "0", "bot": true}
}

func (s *Server) dispatchTo(c *conn, t string, d any) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return c.write(map[string]any{"op": 0, "t": t, "s": seq, "d": d})
}

// Dispatch sends a dispatch to every connected socket.
func (s *Server) Dispatch(t string, d any) {
	for _, c := range s.connections() {
		_ = s.dispatchTo(c, t, d)
	}
}

// Send writes a raw frame to every connected socket.
func (s *Server) Send(op int, d any) {
	for _, c := range s.connections() {
		_ = c.write(map[string]any{"op": op, "d": d})
	}
}

// CloseAll closes every socket with code and reason.
func (s *Server) CloseAll(code int, reason string) {
	for _, c := range s.connections() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.ws.Close()
	}
}

// Connections is the number of open sockets.
func (s *Server) Connections() int {
	return len(s.connections())
}

func (s *Server) connections() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*conn(nil), s.conns...)
}

// Dials returns the time of every socket upgrade, in order.
func (s *Server) Dials() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.dials...)
}

// Frames returns the frames received with the given opcode, in order.
func (s *Server) Frames(op int) []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Frame
	for _, f := range s.frames {
		if f.Op == op {
			out = append(out, f)
		}
	}
	return out
}

// Messages returns the messages posted so far.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// WaitFor polls cond until it holds or timeout elapses.
func (s *Server) WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for !cond() {
		select {
		case <-s.notify:
		case <-time.After(10 * time.Millisecond):
		case <-deadline.C:
			return cond()
		}
	}
	return true
}

// Requests returns the REST calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
