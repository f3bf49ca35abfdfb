package events

import (
	"sync"
	"time"
)

// Event is implemented by all domain events.
type Event interface {
	EventType() string
	OccurredAt() time.Time
}

// BaseEvent carries fields common to all events.
type BaseEvent struct {
	Type     string    `json:"type"`
	Occurred time.Time `json:"occurred_at"`
}

// NewBaseEvent creates a new BaseEvent.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		Type:     eventType,
		Occurred: time.Now(),
	}
}

// EventType returns the event type.
func (e BaseEvent) EventType() string { return e.Type }

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.Occurred }

// Handler processes a published event.
type Handler func(event Event)

// Bus is a synchronous in-process event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish dispatches the event to all handlers registered for its type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventType()]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
