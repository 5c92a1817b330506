package client

import (
	"encoding/json"
	"time"
)

// Event is delivered to every registered listener.
type Event interface {
	// Client returns the client that produced the event.
	Client() *Client
	// ResponseNumber is the gateway sequence number the event was built
	// from, or the last seen sequence for synthetic events.
	ResponseNumber() int64
}

// EventListener is the capability contract of [InterfacedEventManager].
type EventListener interface {
	OnEvent(Event)
}

// EventListenerFunc adapts a function into an [EventListener]. Func values
// are not comparable, so a listener registered this way should be kept
// as a pointer if it must be removed later.
type EventListenerFunc func(Event)

func (f EventListenerFunc) OnEvent(e Event) { f(e) }

type baseEvent struct {
	client *Client
	seq    int64
}

func (e baseEvent) Client() *Client       { return e.client }
func (e baseEvent) ResponseNumber() int64 { return e.seq }

// ReadyEvent fires once the first session is identified.
type ReadyEvent struct {
	baseEvent
	SessionID string
	User      *SelfUser
}

// ResumedEvent fires when a dropped session was resumed without replay loss.
type ResumedEvent struct {
	baseEvent
}

// ReconnectedEvent fires when a new session was identified after a
// previous one was lost.
type ReconnectedEvent struct {
	baseEvent
	SessionID string
}

// DisconnectEvent fires when the gateway socket closes.
type DisconnectEvent struct {
	baseEvent
	Err  error
	Time time.Time
}

// ShutdownEvent fires once when the client stops for good.
type ShutdownEvent struct {
	baseEvent
	Err  error
	Time time.Time
}

// StatusChangeEvent fires on every lifecycle transition.
type StatusChangeEvent struct {
	baseEvent
	Old Status
	New Status
}

// DispatchEvent carries a gateway dispatch not modeled by this package.
type DispatchEvent struct {
	baseEvent
	Type string
	Data json.RawMessage
}

// Decode unmarshals the dispatch payload into v.
func (e *DispatchEvent) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// SelfUser is the account the client is logged in as.
type SelfUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Bot           bool   `json:"bot"`
	Verified      bool   `json:"verified"`
}
