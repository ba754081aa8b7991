package tui

// anchor keeps the chat viewport stable across content changes. The rules
// differ by how the window mutated: a prepend must not move what the agent
// is reading, an append only follows the tail when the agent was already
// there, and a replace (pending promoted or removed) never jumps.
type anchor struct {
	atBottom      bool
	tailID        int64
	contentHeight int
	edgeArmed     bool
}

func newAnchor() anchor {
	return anchor{atBottom: true, edgeArmed: true}
}

// OnScroll records a manual scroll. Reaching the bottom re-engages tail
// following; leaving the top edge re-arms the older-history trigger.
func (a *anchor) OnScroll(yOffset, viewHeight int) {
	a.atBottom = yOffset+viewHeight >= a.contentHeight
	if yOffset > 0 {
		a.edgeArmed = true
	}
}

// ShouldLoadOlder reports whether hitting the top edge should fetch older
// history. Edge-triggered: fires once per arrival at the top, so a fetch
// that comes back empty does not refire until the agent scrolls away and
// returns.
func (a *anchor) ShouldLoadOlder(yOffset int, loading, hasMore bool) bool {
	if yOffset != 0 || loading || !hasMore || !a.edgeArmed {
		return false
	}
	a.edgeArmed = false
	return true
}

// AfterPrepend returns the offset that keeps the previously visible lines
// in place after older content grew the top of the buffer.
func (a *anchor) AfterPrepend(yOffset, newContentHeight int) int {
	delta := newContentHeight - a.contentHeight
	a.contentHeight = newContentHeight
	if delta < 0 {
		delta = 0
	}
	// The viewport sits on new content now; stay off the edge so the
	// trigger can re-arm.
	return yOffset + delta
}

// AfterAppend reports whether the viewport should snap to the bottom for a
// new tail message. Only a genuinely new tail moves the view, and only when
// the agent was already reading the latest messages.
func (a *anchor) AfterAppend(newTailID int64, newContentHeight int) bool {
	a.contentHeight = newContentHeight
	if newTailID == a.tailID {
		return false
	}
	a.tailID = newTailID
	return a.atBottom
}

// AfterReplace records the new geometry without moving the view. A pending
// message swapping to its confirmed form reads the same, so the scroll
// position holds.
func (a *anchor) AfterReplace(newTailID int64, newContentHeight int) {
	a.tailID = newTailID
	a.contentHeight = newContentHeight
}

// Reset prepares the anchor for a freshly opened conversation, which always
// starts pinned to the newest messages.
func (a *anchor) Reset(tailID int64, contentHeight int) {
	a.atBottom = true
	a.tailID = tailID
	a.contentHeight = contentHeight
	a.edgeArmed = true
}
