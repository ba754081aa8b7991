package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// OnStreamMessage is the single reconciliation entry point for the push
// stream. It is total over its input: malformed events are dropped and
// logged, duplicates are no-ops, and nothing here can take down the
// delivery loop.
func (e *Engine) OnStreamMessage(msg Message) {
	if msg.ConversationID == "" {
		log.Warn().Int64("id", msg.ID).Msg("dropping stream message without conversation id")
		return
	}
	if !msg.Confirmed() {
		log.Warn().Str("conversation", msg.ConversationID).Msg("dropping unconfirmed stream message")
		return
	}
	if msg.Direction == DirectionOutbound && msg.Status == "" {
		msg.Status = StatusSent
	}

	var mutation Mutation

	e.mu.Lock()
	if e.openID == msg.ConversationID {
		switch {
		case e.window.ContainsID(msg.ID):
			// Duplicate delivery, window untouched.

		case msg.TempID != "" && e.window.ReplacePending(msg.TempID, msg):
			// Echoed temp id, exact reconciliation.
			delete(e.memos, msg.TempID)
			mutation = MutationReplace

		default:
			if tempID, ok := e.window.MatchPending(msg, constants.OptimisticMatchWindow); ok {
				e.window.ReplacePending(tempID, msg)
				delete(e.memos, tempID)
				mutation = MutationReplace
			} else if e.window.MergeTail(msg) {
				mutation = MutationAppend
			}
		}
	}

	entry := e.touchLocked(msg.ConversationID, msg.Content, msg.CreatedAt)
	if e.openID != msg.ConversationID && msg.Direction == DirectionInbound {
		entry.UnreadCount++
	}
	e.mu.Unlock()

	now := time.Now()
	if mutation != "" {
		e.bus.Publish(Event{
			Type:           EventWindowChanged,
			ConversationID: msg.ConversationID,
			Mutation:       mutation,
			Timestamp:      now,
		})
	}
	e.bus.Publish(Event{Type: EventListChanged, Timestamp: now})
}
