package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// Send runs the optimistic send pipeline: the pending message and the list
// bump are applied synchronously before any network traffic, so the UI
// reflects the send the instant it happens. The network call resolves in the
// background; a failure rolls everything back by temp id.
func (e *Engine) Send(conversationID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	tempID := uuid.New().String()
	now := time.Now()
	pending := Message{
		TempID:         tempID,
		ConversationID: conversationID,
		Content:        text,
		Direction:      DirectionOutbound,
		Status:         StatusSending,
		CreatedAt:      now,
	}

	e.mu.Lock()
	memo := sendMemo{
		conversationID: conversationID,
		text:           text,
		setAt:          now,
	}
	if c := e.findLocked(conversationID); c != nil {
		memo.prevPreview = c.LastMessagePreview
		memo.prevAt = c.LastMessageAt
	}
	e.memos[tempID] = memo

	if e.openID == conversationID {
		e.window.AppendPending(pending)
	}
	e.touchLocked(conversationID, text, now)
	e.mu.Unlock()

	e.bus.Publish(Event{
		Type:           EventWindowChanged,
		ConversationID: conversationID,
		Mutation:       MutationAppend,
		Timestamp:      now,
	})
	e.bus.Publish(Event{Type: EventListChanged, Timestamp: now})

	go e.dispatchSend(conversationID, tempID, text)
	return nil
}

// dispatchSend performs the network send. Success takes no direct action:
// the server echoes the message back through the stream and the reconciler
// promotes the pending entry.
func (e *Engine) dispatchSend(conversationID, tempID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.SendRequestTimeout)
	defer cancel()

	_, err := e.client.SendMessage(ctx, conversationID, tempID, text)
	if err != nil {
		log.Warn().Err(err).
			Str("conversation", conversationID).
			Str("temp_id", tempID).
			Msg("send failed")
		e.rollbackSend(tempID, err)
		return
	}

	e.mu.Lock()
	delete(e.memos, tempID)
	e.mu.Unlock()
}

// rollbackSend undoes a failed optimistic send: the pending message leaves
// the window and the list entry gets its previous preview back. Everything
// is keyed by temp id and conversation id; the open screen is irrelevant.
func (e *Engine) rollbackSend(tempID string, cause error) {
	e.mu.Lock()
	memo, ok := e.memos[tempID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.memos, tempID)

	if e.openID == memo.conversationID {
		e.window.RemovePending(tempID)
	}

	// Restore the list entry only if the failed send is still what it shows;
	// a later message may have bumped it since.
	if c := e.findLocked(memo.conversationID); c != nil &&
		c.LastMessagePreview == previewOf(memo.text) && c.LastMessageAt.Equal(memo.setAt) {
		c.LastMessagePreview = memo.prevPreview
		c.LastMessageAt = memo.prevAt
		e.respliceLocked(memo.conversationID)
	}
	e.mu.Unlock()

	now := time.Now()
	e.bus.Publish(Event{
		Type:           EventWindowChanged,
		ConversationID: memo.conversationID,
		Mutation:       MutationReplace,
		Timestamp:      now,
	})
	e.bus.Publish(Event{Type: EventListChanged, Timestamp: now})
	e.bus.Publish(Event{
		Type:           EventSendFailed,
		ConversationID: memo.conversationID,
		Text:           memo.text,
		Error:          cause.Error(),
		Timestamp:      now,
	})
}
