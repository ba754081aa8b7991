package engine

import (
	"sync"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// EventBus fans engine events out to subscribers. Publishes never block:
// a subscriber that stops draining its channel loses events once its
// buffer fills.
type EventBus struct {
	mu         sync.RWMutex
	subs       []chan Event
	bufferSize int
}

// NewEventBus creates a bus whose subscriber channels buffer at least
// bufferSize events.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize < constants.MinEventBusBufferSize {
		bufferSize = constants.MinEventBusBufferSize
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe registers a new subscriber and returns its event channel.
func (b *EventBus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			close(sub)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to every subscriber with buffer room left.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscriber channel and empties the bus.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
