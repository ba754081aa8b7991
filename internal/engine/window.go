package engine

import (
	"sort"
	"time"
)

// Window holds the loaded message slice for one conversation.
//
// Invariant, maintained by every mutation: confirmed messages appear in
// ascending id order and are unique by id; pending messages trail all
// confirmed ones. Writers always mutate the current slice, never a stale
// snapshot, so interleaved producers cannot lose updates.
type Window struct {
	msgs []Message
}

// Reset replaces the window contents with an initial load. The input is
// normalized: confirmed messages are sorted ascending and deduplicated by
// id, pending messages keep their relative order after them.
func (w *Window) Reset(msgs []Message) {
	confirmed := make([]Message, 0, len(msgs))
	var pending []Message
	seen := make(map[int64]bool, len(msgs))

	for _, m := range msgs {
		if !m.Confirmed() {
			pending = append(pending, m)
			continue
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		confirmed = append(confirmed, m)
	}

	sort.Slice(confirmed, func(i, j int) bool { return confirmed[i].ID < confirmed[j].ID })
	w.msgs = append(confirmed, pending...)
}

// Len returns the number of messages in the window.
func (w *Window) Len() int {
	return len(w.msgs)
}

// Messages returns a copy of the window contents.
func (w *Window) Messages() []Message {
	out := make([]Message, len(w.msgs))
	copy(out, w.msgs)
	return out
}

// Tail returns the last message in the window.
func (w *Window) Tail() (Message, bool) {
	if len(w.msgs) == 0 {
		return Message{}, false
	}
	return w.msgs[len(w.msgs)-1], true
}

// ContainsID reports whether a confirmed message with the given id is loaded.
func (w *Window) ContainsID(id int64) bool {
	for _, m := range w.msgs {
		if m.Confirmed() && m.ID == id {
			return true
		}
	}
	return false
}

// confirmedEnd returns the index of the first pending message.
func (w *Window) confirmedEnd() int {
	for i := len(w.msgs) - 1; i >= 0; i-- {
		if w.msgs[i].Confirmed() {
			return i + 1
		}
	}
	return 0
}

// AppendPending appends an optimistic message to the end of the window.
func (w *Window) AppendPending(m Message) {
	w.msgs = append(w.msgs, m)
}

// RemovePending removes the pending message with the given temp id.
func (w *Window) RemovePending(tempID string) (Message, bool) {
	for i := len(w.msgs) - 1; i >= 0; i-- {
		m := w.msgs[i]
		if !m.Confirmed() && m.TempID == tempID {
			w.msgs = append(w.msgs[:i], w.msgs[i+1:]...)
			return m, true
		}
	}
	return Message{}, false
}

// ReplacePending promotes the pending message with the given temp id to the
// confirmed message. The confirmed message takes the pending entry's slot;
// if earlier pendings would then precede it, it is moved into the confirmed
// region so the ordering invariant holds.
func (w *Window) ReplacePending(tempID string, confirmed Message) bool {
	removed := false
	for i := len(w.msgs) - 1; i >= 0; i-- {
		m := w.msgs[i]
		if !m.Confirmed() && m.TempID == tempID {
			w.msgs = append(w.msgs[:i], w.msgs[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return false
	}
	w.insertConfirmed(confirmed)
	return true
}

// MergeTail merges a confirmed message into the window, keeping confirmed
// ordering. Returns false if the id is already present (duplicate delivery).
func (w *Window) MergeTail(m Message) bool {
	if !m.Confirmed() || w.ContainsID(m.ID) {
		return false
	}
	w.insertConfirmed(m)
	return true
}

// PrependOlder splices a fetched history page onto the front of the window.
// Messages whose id is already loaded are dropped; the remainder is sorted
// ascending before the splice. Returns the number of messages added.
func (w *Window) PrependOlder(batch []Message) int {
	fresh := make([]Message, 0, len(batch))
	seen := make(map[int64]bool, len(batch))
	for _, m := range batch {
		if !m.Confirmed() || seen[m.ID] || w.ContainsID(m.ID) {
			continue
		}
		seen[m.ID] = true
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return 0
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })
	w.msgs = append(fresh, w.msgs...)
	return len(fresh)
}

// MatchPending finds the optimistic message a confirmed echo most plausibly
// confirms: still sending, identical content, outbound, timestamps within the
// given distance. Pendings are scanned from the tail. Returns the temp id.
func (w *Window) MatchPending(msg Message, within time.Duration) (string, bool) {
	if msg.Direction != DirectionOutbound {
		return "", false
	}
	for i := len(w.msgs) - 1; i >= 0; i-- {
		m := w.msgs[i]
		if m.Confirmed() || m.Status != StatusSending {
			continue
		}
		if m.Content != msg.Content {
			continue
		}
		d := msg.CreatedAt.Sub(m.CreatedAt)
		if d < 0 {
			d = -d
		}
		if d < within {
			return m.TempID, true
		}
	}
	return "", false
}

// insertConfirmed places a confirmed message at its sorted position within
// the confirmed region, before any pending messages.
func (w *Window) insertConfirmed(m Message) {
	end := w.confirmedEnd()
	pos := end
	for pos > 0 && w.msgs[pos-1].ID > m.ID {
		pos--
	}
	w.msgs = append(w.msgs, Message{})
	copy(w.msgs[pos+1:], w.msgs[pos:])
	w.msgs[pos] = m
}
