package client_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/botkit/client"
)

type namedListener struct {
	name string
	log  *[]string
}

func (l *namedListener) OnEvent(client.Event) {
	*l.log = append(*l.log, l.name)
}

type panicListener struct{}

func (panicListener) OnEvent(client.Event) {
	panic("boom")
}

type noopEvent struct{}

func (noopEvent) Client() *client.Client { return nil }
func (noopEvent) ResponseNumber() int64  { return 0 }

func TestInterfacedEventManager_Order(t *testing.T) {
	var log []string
	a := &namedListener{name: "a", log: &log}
	b := &namedListener{name: "b", log: &log}

	m := client.NewInterfacedEventManager(quietLogger())
	for _, l := range []any{a, b, a} {
		if err := m.Register(l); err != nil {
			t.Fatalf("registering: %v", err)
		}
	}

	m.Handle(noopEvent{})
	if diff := cmp.Diff([]string{"a", "b", "a"}, log); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}

	log = nil
	m.Unregister(a)
	m.Handle(noopEvent{})
	if diff := cmp.Diff([]string{"b", "a"}, log); diff != "" {
		t.Errorf("delivery after unregister mismatch (-want +got):\n%s", diff)
	}

	if got := len(m.RegisteredListeners()); got != 2 {
		t.Errorf("exp 2 listeners, got %d", got)
	}
}

func TestInterfacedEventManager_Panic(t *testing.T) {
	var log []string
	after := &namedListener{name: "after", log: &log}

	m := client.NewInterfacedEventManager(quietLogger())
	_ = m.Register(panicListener{})
	_ = m.Register(after)

	m.Handle(noopEvent{})

	if diff := cmp.Diff([]string{"after"}, log); diff != "" {
		t.Errorf("delivery mismatch (-want +got):\n%s", diff)
	}
}

func TestInterfacedEventManager_Register(t *testing.T) {
	m := client.NewInterfacedEventManager(nil)

	testCases := map[string]struct {
		listener any
		expErr   error
	}{
		"listener":     {listener: newRecorder()},
		"listenerFunc": {listener: client.EventListenerFunc(func(client.Event) {})},
		"string":       {listener: "nope", expErr: client.ErrInvalidListener},
		"nil":          {listener: nil, expErr: client.ErrInvalidListener},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if err := m.Register(tc.listener); !errors.Is(err, tc.expErr) {
				t.Errorf("exp err %v, got: %v", tc.expErr, err)
			}
		})
	}
}

func TestInterfacedEventManager_UnregisterIncomparable(t *testing.T) {
	var calls int
	fn := client.EventListenerFunc(func(client.Event) { calls++ })

	m := client.NewInterfacedEventManager(nil)
	_ = m.Register(fn)

	m.Unregister(fn)
	m.Handle(noopEvent{})

	if calls != 1 {
		t.Errorf("func listeners cannot be removed by value; exp 1 call, got %d", calls)
	}
}

type customManager struct {
	registered []any
	handled    atomic.Int32
}

func (m *customManager) Register(l any) error       { m.registered = append(m.registered, l); return nil }
func (m *customManager) Unregister(any)             {}
func (m *customManager) Handle(client.Event)        { m.handled.Add(1) }
func (m *customManager) RegisteredListeners() []any { return m.registered }

func TestBuildAsync_CustomEventManager(t *testing.T) {
	srv := newServer(t)

	manager := &customManager{}
	c, err := newTestBuilder(srv).
		SetEventManager(manager).
		AddEventListener("any value is accepted").
		BuildAsync()
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	c.Shutdown()
	<-c.Done()

	if c.EventManager() != manager {
		t.Error("client does not use the configured manager")
	}
	if diff := cmp.Diff([]any{"any value is accepted"}, manager.registered); diff != "" {
		t.Errorf("registered mismatch (-want +got):\n%s", diff)
	}
	if manager.handled.Load() == 0 {
		t.Error("exp lifecycle events routed to the custom manager")
	}
}
