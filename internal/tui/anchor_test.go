package tui

import "testing"

func TestAnchorPrependKeepsReadingPosition(t *testing.T) {
	a := newAnchor()
	a.Reset(10, 100)

	// Scrolled up to the top, 40 lines of older history arrive.
	a.OnScroll(0, 20)
	got := a.AfterPrepend(0, 140)
	if got != 40 {
		t.Errorf("Expected offset 40 after 40 new lines, got %d", got)
	}

	// Mid-scroll prepend shifts by the same delta.
	a.OnScroll(15, 20)
	got = a.AfterPrepend(15, 160)
	if got != 35 {
		t.Errorf("Expected offset 35, got %d", got)
	}
}

func TestAnchorAppendFollowsTailOnlyAtBottom(t *testing.T) {
	a := newAnchor()
	a.Reset(10, 100)

	// Pinned to bottom: new tail snaps down.
	if !a.AfterAppend(11, 102) {
		t.Error("Expected snap to bottom for new tail while at bottom")
	}

	// Scrolled up: new tail must not move the view.
	a.OnScroll(10, 20)
	if a.AfterAppend(12, 104) {
		t.Error("Expected no snap while scrolled up")
	}

	// Back at the bottom, following resumes.
	a.OnScroll(86, 20)
	if !a.AfterAppend(13, 106) {
		t.Error("Expected snap after returning to bottom")
	}
}

func TestAnchorAppendSameTailNoMove(t *testing.T) {
	a := newAnchor()
	a.Reset(10, 100)

	// Re-render with an unchanged tail (window replace path) stays put.
	if a.AfterAppend(10, 100) {
		t.Error("Expected no snap when the tail id did not change")
	}
}

func TestAnchorTopEdgeFiresOncePerArrival(t *testing.T) {
	a := newAnchor()
	a.Reset(10, 100)

	if !a.ShouldLoadOlder(0, false, true) {
		t.Fatal("Expected first top hit to fire")
	}
	// Still at the top: must not refire.
	if a.ShouldLoadOlder(0, false, true) {
		t.Error("Expected no refire while parked at the top")
	}

	// Scroll away and back re-arms.
	a.OnScroll(5, 20)
	if !a.ShouldLoadOlder(0, false, true) {
		t.Error("Expected refire after leaving and returning to the top")
	}
}

func TestAnchorTopEdgeRespectsGuards(t *testing.T) {
	a := newAnchor()
	a.Reset(10, 100)

	if a.ShouldLoadOlder(0, true, true) {
		t.Error("Expected no fire while a fetch is in flight")
	}
	if a.ShouldLoadOlder(0, false, false) {
		t.Error("Expected no fire when no more history exists")
	}
	if a.ShouldLoadOlder(3, false, true) {
		t.Error("Expected no fire away from the top edge")
	}
}

func TestAnchorResetPinsToBottom(t *testing.T) {
	a := newAnchor()
	a.OnScroll(10, 20)
	a.Reset(42, 50)

	if !a.AfterAppend(43, 52) {
		t.Error("Expected a freshly opened conversation to follow the tail")
	}
}
