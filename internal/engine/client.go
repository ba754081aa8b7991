package engine

import (
	"context"
	"errors"
)

// Sentinel errors returned by engine operations.
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrLoadInFlight    = errors.New("history load already in flight")
	ErrNoMoreHistory   = errors.New("no more history")
	ErrNotMaterialized = errors.New("conversation is not materialized")
)

// ConversationPage is the initial load of a conversation: the entry itself,
// its newest page of messages, and the backward pagination bound.
type ConversationPage struct {
	Conversation Conversation
	LastPage     int
}

// Client is the capability surface the engine consumes. Implementations talk
// to the backend; the engine never sees URLs or transports.
type Client interface {
	// SendMessage delivers one outbound message. The temp id travels with
	// the request so a backend that echoes it back short-circuits the
	// optimistic matching heuristic.
	SendMessage(ctx context.Context, conversationID, tempID, text string) (Message, error)

	// FetchConversations lists inbox entries, most recent first.
	FetchConversations(ctx context.Context) ([]Conversation, error)

	// FetchConversation loads one conversation with its newest message page.
	FetchConversation(ctx context.Context, conversationID string) (ConversationPage, error)

	// FetchOlderMessages fetches one page of older history. Page 1 is the
	// newest page.
	FetchOlderMessages(ctx context.Context, conversationID string, page int) (HistoryPage, error)

	// SubscribeMessages opens the push stream for a conversation and invokes
	// onMessage once per delivered event. Delivery is at-least-once and may
	// be out of order. onStatus reports each connect (true) and each drop
	// (false) of the underlying stream. The returned stop function tears the
	// stream down.
	SubscribeMessages(ctx context.Context, conversationID string, onMessage func(Message), onStatus func(connected bool)) (func(), error)
}
