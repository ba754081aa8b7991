package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// LoadOlder fetches the next page of older history for the materialized
// conversation. Guarded: only one load per conversation may be in flight,
// and only while older pages remain.
func (e *Engine) LoadOlder(conversationID string) error {
	e.mu.Lock()
	cur := e.cursors[conversationID]
	if cur == nil || e.openID != conversationID {
		e.mu.Unlock()
		return ErrNotMaterialized
	}
	if cur.loading {
		e.mu.Unlock()
		return ErrLoadInFlight
	}
	if !cur.hasMore {
		e.mu.Unlock()
		return ErrNoMoreHistory
	}
	cur.loading = true
	page := cur.page + 1
	e.mu.Unlock()

	e.bus.Publish(Event{
		Type:           EventOlderLoading,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	})

	go e.fetchOlder(conversationID, page)
	return nil
}

// fetchOlder resolves a history fetch. Failures leave the cursor untouched
// so scrolling up again retries; late results or failures for a conversation
// no longer materialized are dropped without touching anything.
func (e *Engine) fetchOlder(conversationID string, page int) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.FetchRequestTimeout)
	defer cancel()

	hp, err := e.client.FetchOlderMessages(ctx, conversationID, page)

	e.mu.Lock()
	cur := e.cursors[conversationID]
	if cur != nil {
		cur.loading = false
	}

	if err != nil {
		stillOpen := e.openID == conversationID
		e.mu.Unlock()
		log.Warn().Err(err).
			Str("conversation", conversationID).
			Int("page", page).
			Msg("history fetch failed")
		if stillOpen {
			e.bus.Publish(Event{
				Type:           EventOlderFailed,
				ConversationID: conversationID,
				Error:          err.Error(),
				Timestamp:      time.Now(),
			})
		}
		return
	}

	if cur == nil || e.openID != conversationID {
		e.mu.Unlock()
		return
	}

	added := e.window.PrependOlder(hp.Messages)
	if added > 0 {
		cur.page = page
		cur.hasMore = page < hp.LastPage
	} else {
		cur.hasMore = false
	}
	e.mu.Unlock()

	now := time.Now()
	e.bus.Publish(Event{
		Type:           EventOlderLoaded,
		ConversationID: conversationID,
		Prepended:      added,
		Timestamp:      now,
	})
	if added > 0 {
		e.bus.Publish(Event{
			Type:           EventWindowChanged,
			ConversationID: conversationID,
			Mutation:       MutationPrepend,
			Prepended:      added,
			Timestamp:      now,
		})
	}
}
