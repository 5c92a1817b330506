package client

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// EventManager routes events to listeners. Implementations decide
// which listener values they accept.
type EventManager interface {
	Register(listener any) error
	Unregister(listener any)
	Handle(Event)
	RegisteredListeners() []any
}

// InterfacedEventManager dispatches synchronously, in registration
// order, to listeners implementing [EventListener]. A panicking
// listener is logged and does not stop delivery to the others.
type InterfacedEventManager struct {
	mu        sync.RWMutex
	listeners []EventListener
	logger    *slog.Logger
}

func NewInterfacedEventManager(logger *slog.Logger) *InterfacedEventManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &InterfacedEventManager{logger: logger}
}

func (m *InterfacedEventManager) Register(listener any) error {
	l, ok := listener.(EventListener)
	if !ok {
		return fmt.Errorf("%w: %T does not implement EventListener", ErrInvalidListener, listener)
	}

	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()

	return nil
}

// Unregister removes the first registration equal to listener.
func (m *InterfacedEventManager) Unregister(listener any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := indexOf(m.listeners, listener); i >= 0 {
		m.listeners = slices.Delete(m.listeners, i, i+1)
	}
}

func (m *InterfacedEventManager) RegisteredListeners() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]any, len(m.listeners))
	for i, l := range m.listeners {
		out[i] = l
	}
	return out
}

func (m *InterfacedEventManager) Handle(e Event) {
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()

	for _, l := range listeners {
		m.deliver(l, e)
	}
}

func (m *InterfacedEventManager) deliver(l EventListener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event listener panicked", "listener", fmt.Sprintf("%T", l), "event", fmt.Sprintf("%T", e), "panic", r)
		}
	}()

	l.OnEvent(e)
}

// indexOf finds target by ==, skipping values whose dynamic type is not
// comparable so the lookup never panics.
func indexOf[T any](list []T, target any) int {
	if !isComparable(target) {
		return -1
	}

	for i, v := range list {
		if isComparable(v) && any(v) == target {
			return i
		}
	}
	return -1
}

func isComparable(v any) bool {
	return reflect.ValueOf(v).Comparable()
}
