package engine

import (
	"sort"
	"time"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
)

// previewOf derives the list preview from message text.
func previewOf(text string) string {
	runes := []rune(text)
	if len(runes) <= constants.PreviewMaxChars {
		return text
	}
	return string(runes[:constants.PreviewMaxChars]) + constants.PreviewEllipsis
}

// touchLocked updates a conversation's preview and timestamp and re-splices
// the entry to the head of the list, preserving the relative order of all
// others. Unknown conversations get a stub entry so a push for a brand-new
// thread still lands in the inbox. Callers hold the lock.
func (e *Engine) touchLocked(conversationID, preview string, at time.Time) *Conversation {
	idx := -1
	for i, c := range e.convs {
		if c.ID == conversationID {
			idx = i
			break
		}
	}

	var entry *Conversation
	if idx == -1 {
		entry = &Conversation{ID: conversationID, Contact: conversationID}
	} else {
		entry = e.convs[idx]
		e.convs = append(e.convs[:idx], e.convs[idx+1:]...)
	}

	entry.LastMessagePreview = previewOf(preview)
	entry.LastMessageAt = at
	e.convs = append([]*Conversation{entry}, e.convs...)
	return entry
}

// respliceLocked moves an entry back to the position its timestamp sorts to,
// used after a rollback restores older preview state. Callers hold the lock.
func (e *Engine) respliceLocked(conversationID string) {
	idx := -1
	for i, c := range e.convs {
		if c.ID == conversationID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	entry := e.convs[idx]
	e.convs = append(e.convs[:idx], e.convs[idx+1:]...)

	pos := len(e.convs)
	for i, c := range e.convs {
		if entry.LastMessageAt.After(c.LastMessageAt) {
			pos = i
			break
		}
	}
	e.convs = append(e.convs, nil)
	copy(e.convs[pos+1:], e.convs[pos:])
	e.convs[pos] = entry
}

// sortLocked orders the list by last message time, most recent first.
// Callers hold the lock.
func (e *Engine) sortLocked() {
	sort.SliceStable(e.convs, func(i, j int) bool {
		return e.convs[i].LastMessageAt.After(e.convs[j].LastMessageAt)
	})
}
