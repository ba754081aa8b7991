// Package engine implements the live conversation synchronization core: it
// keeps an open conversation's message window, the inbox ordering, and
// outgoing message state consistent across optimistic sends, the push
// stream, and backward history pagination.
package engine

import (
	"time"
)

// Direction indicates whether a message was sent by us or by the contact.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Status represents the delivery state of an outbound message.
type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Message is a single chat message. Until the server confirms a send, ID is
// zero and the message is identified by its client-generated TempID.
type Message struct {
	ID             int64
	TempID         string
	ConversationID string
	Content        string
	Direction      Direction
	Status         Status
	CreatedAt      time.Time
	DeliveredAt    time.Time
}

// Confirmed reports whether the server has assigned this message an id.
func (m Message) Confirmed() bool {
	return m.ID != 0
}

// Conversation is one inbox entry. Messages holds the currently loaded
// window (the paginated slice), never the full history; it is populated only
// for the materialized conversation.
type Conversation struct {
	ID                 string
	Contact            string
	LastMessagePreview string
	LastMessageAt      time.Time
	UnreadCount        int
	PipelineStageID    string
	Priority           string
	AssigneeID         string
	Archived           bool
	Messages           []Message
}

// HistoryPage is one page of older messages fetched backward.
type HistoryPage struct {
	Messages []Message
	LastPage int
}

// EventType identifies the type of engine event.
type EventType string

const (
	EventListChanged        EventType = "list_changed"
	EventWindowChanged      EventType = "window_changed"
	EventConversationLoaded EventType = "conversation_loaded"
	EventLoadFailed         EventType = "load_failed"
	EventSendFailed         EventType = "send_failed"
	EventOlderLoading       EventType = "older_loading"
	EventOlderLoaded        EventType = "older_loaded"
	EventOlderFailed        EventType = "older_failed"
	EventStreamUp           EventType = "stream_up"
	EventStreamDown         EventType = "stream_down"
)

// Mutation classifies how the message window changed, so the view can pick
// the right scroll behavior.
type Mutation string

const (
	MutationPrepend Mutation = "prepend"
	MutationAppend  Mutation = "append"
	MutationReplace Mutation = "replace"
)

// Event represents something that happened in the engine.
type Event struct {
	Type           EventType
	ConversationID string
	Mutation       Mutation
	Prepended      int    // messages added at the front, for prepend mutations
	Text           string // original composer text, for send failures
	Error          string
	Timestamp      time.Time
}
