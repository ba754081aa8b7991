package server

import (
	"sync"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/store"
)

const subscriberBuffer = 64

// Hub fans stored messages out to stream subscribers, keyed by conversation.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]chan *store.Message
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string][]chan *store.Message),
	}
}

// Subscribe returns a channel receiving every message published for the
// conversation. The caller must drain it; slow subscribers lose events
// rather than blocking the publisher.
func (h *Hub) Subscribe(conversationID string) <-chan *store.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *store.Message, subscriberBuffer)
	h.subs[conversationID] = append(h.subs[conversationID], ch)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (h *Hub) Unsubscribe(conversationID string, ch <-chan *store.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[conversationID]
	for i, sub := range subs {
		if sub == ch {
			close(sub)
			h.subs[conversationID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends a message to every subscriber of its conversation.
// Non-blocking: drops events if a subscriber's buffer is full.
func (h *Hub) Publish(msg *store.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[msg.ConversationID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Close closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subs := range h.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	h.subs = make(map[string][]chan *store.Message)
}
