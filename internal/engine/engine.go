package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// pageCursor tracks backward pagination for a materialized conversation.
type pageCursor struct {
	page    int
	hasMore bool
	loading bool
}

// sendMemo remembers what an optimistic send changed so a failed send can be
// rolled back, keyed by temp id and never by the open screen.
type sendMemo struct {
	conversationID string
	text           string
	setAt          time.Time
	prevPreview    string
	prevAt         time.Time
}

// Engine owns the conversation list, the materialized conversation's message
// window, and all state transitions between them. All mutations go through
// the engine's lock against the latest state, so the send pipeline, the
// stream reconciler, and the paginator can interleave freely.
type Engine struct {
	mu     sync.RWMutex
	client Client
	bus    *EventBus

	convs   []*Conversation
	openID  string
	window  Window
	cursors map[string]*pageCursor
	memos   map[string]sendMemo

	stopStream func()
}

// New creates an engine on top of the given client.
func New(client Client, bus *EventBus) *Engine {
	return &Engine{
		client:  client,
		bus:     bus,
		cursors: make(map[string]*pageCursor),
		memos:   make(map[string]sendMemo),
	}
}

// LoadInbox fetches the conversation list from the backend.
func (e *Engine) LoadInbox(ctx context.Context) error {
	convs, err := e.client.FetchConversations(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.convs = make([]*Conversation, len(convs))
	for i := range convs {
		c := convs[i]
		c.Messages = nil
		e.convs[i] = &c
	}
	e.sortLocked()
	e.mu.Unlock()

	e.bus.Publish(Event{Type: EventListChanged, Timestamp: time.Now()})
	return nil
}

// Conversations returns a snapshot of the inbox list, most recent first.
// Snapshots never carry message windows; use Current for the open one.
func (e *Engine) Conversations() []Conversation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Conversation, len(e.convs))
	for i, c := range e.convs {
		out[i] = *c
		out[i].Messages = nil
	}
	return out
}

// Current returns the materialized conversation with its loaded window.
func (e *Engine) Current() (Conversation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.openID == "" {
		return Conversation{}, false
	}
	c := e.findLocked(e.openID)
	if c == nil {
		return Conversation{}, false
	}
	out := *c
	out.Messages = e.window.Messages()
	return out, true
}

// Open materializes a conversation: resets the window and cursor, clears the
// unread count, and kicks off the full load and the stream subscription. Any
// previously open conversation is closed first.
func (e *Engine) Open(conversationID string) {
	e.mu.Lock()
	if e.stopStream != nil {
		e.stopStream()
		e.stopStream = nil
	}
	e.openID = conversationID
	e.window = Window{}
	e.cursors[conversationID] = &pageCursor{page: 1}
	if c := e.findLocked(conversationID); c != nil {
		c.UnreadCount = 0
	}
	e.mu.Unlock()

	e.bus.Publish(Event{Type: EventListChanged, Timestamp: time.Now()})
	go e.loadConversation(conversationID)
}

// Close tears down the materialized conversation and its stream.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.stopStream != nil {
		e.stopStream()
		e.stopStream = nil
	}
	e.openID = ""
	e.window = Window{}
	e.mu.Unlock()
}

// HasMore reports whether older history remains for a conversation.
func (e *Engine) HasMore(conversationID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cur := e.cursors[conversationID]
	return cur != nil && cur.hasMore
}

// IsLoadingOlder reports whether a history fetch is in flight.
func (e *Engine) IsLoadingOlder(conversationID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cur := e.cursors[conversationID]
	return cur != nil && cur.loading
}

// loadConversation performs the full load for a freshly opened conversation.
// A late result for a conversation the user already left is dropped; the
// check is by conversation id, not by screen.
func (e *Engine) loadConversation(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.FetchRequestTimeout)
	defer cancel()

	page, err := e.client.FetchConversation(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation", conversationID).Msg("conversation load failed")
		e.mu.RLock()
		stillOpen := e.openID == conversationID
		e.mu.RUnlock()
		if stillOpen {
			e.bus.Publish(Event{
				Type:           EventLoadFailed,
				ConversationID: conversationID,
				Error:          err.Error(),
				Timestamp:      time.Now(),
			})
		}
		return
	}

	e.mu.Lock()
	if e.openID != conversationID {
		e.mu.Unlock()
		return
	}

	conv := page.Conversation
	entry := conv
	entry.Messages = nil
	entry.UnreadCount = 0
	if c := e.findLocked(conversationID); c != nil {
		*c = entry
	} else {
		e.convs = append(e.convs, &entry)
		e.sortLocked()
	}
	e.window.Reset(conv.Messages)
	e.cursors[conversationID] = &pageCursor{page: 1, hasMore: 1 < page.LastPage}
	e.mu.Unlock()

	e.bus.Publish(Event{
		Type:           EventConversationLoaded,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	})
	e.bus.Publish(Event{
		Type:           EventWindowChanged,
		ConversationID: conversationID,
		Mutation:       MutationReplace,
		Timestamp:      time.Now(),
	})

	e.subscribe(conversationID)
}

// subscribe opens the push stream for a conversation and routes every event
// through the reconciler. Up and down events follow the stream's reported
// connection lifecycle; a status report for a conversation no longer open is
// dropped.
func (e *Engine) subscribe(conversationID string) {
	onStatus := func(connected bool) {
		e.mu.RLock()
		stillOpen := e.openID == conversationID
		e.mu.RUnlock()
		if !stillOpen {
			return
		}
		typ := EventStreamDown
		if connected {
			typ = EventStreamUp
		}
		e.bus.Publish(Event{
			Type:           typ,
			ConversationID: conversationID,
			Timestamp:      time.Now(),
		})
	}

	stop, err := e.client.SubscribeMessages(context.Background(), conversationID, e.OnStreamMessage, onStatus)
	if err != nil {
		log.Warn().Err(err).Str("conversation", conversationID).Msg("stream subscription failed")
		e.bus.Publish(Event{
			Type:           EventStreamDown,
			ConversationID: conversationID,
			Error:          err.Error(),
			Timestamp:      time.Now(),
		})
		return
	}

	e.mu.Lock()
	if e.openID != conversationID {
		e.mu.Unlock()
		stop()
		return
	}
	e.stopStream = stop
	e.mu.Unlock()
}

// findLocked returns the list entry for a conversation id. Callers hold the lock.
func (e *Engine) findLocked(conversationID string) *Conversation {
	for _, c := range e.convs {
		if c.ID == conversationID {
			return c
		}
	}
	return nil
}
