package engine

import (
	"errors"
	"testing"
	"time"
)

// nextStreamEvent drains the bus channel until a stream up or down event
// arrives, or reports that none did within the window.
func nextStreamEvent(t *testing.T, ch <-chan Event) (Event, bool) {
	t.Helper()
	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case ev := <-ch:
			if ev.Type == EventStreamUp || ev.Type == EventStreamDown {
				return ev, true
			}
		case <-deadline:
			return Event{}, false
		}
	}
}

func TestStreamStatusFollowsConnection(t *testing.T) {
	client := newFakeClient()
	bus := NewEventBus(16)
	t.Cleanup(bus.Close)
	e := New(client, bus)
	ch := bus.Subscribe()

	openAndLoad(t, e, client, Conversation{ID: "c1", Contact: "Ada"}, 1)

	// Subscription alone is not a connection.
	if ev, ok := nextStreamEvent(t, ch); ok {
		t.Fatalf("expected no stream event before a reported connect, got %s", ev.Type)
	}

	client.reportStatus(true)
	ev, ok := nextStreamEvent(t, ch)
	if !ok || ev.Type != EventStreamUp || ev.ConversationID != "c1" {
		t.Fatalf("expected stream up for c1, got %+v (ok=%v)", ev, ok)
	}

	client.reportStatus(false)
	ev, ok = nextStreamEvent(t, ch)
	if !ok || ev.Type != EventStreamDown {
		t.Fatalf("expected stream down after drop, got %+v (ok=%v)", ev, ok)
	}

	client.reportStatus(true)
	ev, ok = nextStreamEvent(t, ch)
	if !ok || ev.Type != EventStreamUp {
		t.Fatalf("expected stream up after reconnect, got %+v (ok=%v)", ev, ok)
	}
}

func TestStreamStatusAfterCloseDropped(t *testing.T) {
	client := newFakeClient()
	bus := NewEventBus(16)
	t.Cleanup(bus.Close)
	e := New(client, bus)
	ch := bus.Subscribe()

	openAndLoad(t, e, client, Conversation{ID: "c1", Contact: "Ada"}, 1)
	e.Close()

	// A late report from the torn-down stream must not surface.
	client.reportStatus(true)
	client.reportStatus(false)
	if ev, ok := nextStreamEvent(t, ch); ok {
		t.Fatalf("expected no stream event after close, got %s", ev.Type)
	}
}

func TestStreamSubscribeErrorPublishesDown(t *testing.T) {
	client := newFakeClient()
	bus := NewEventBus(16)
	t.Cleanup(bus.Close)
	e := New(client, bus)
	ch := bus.Subscribe()

	client.mu.Lock()
	client.convPage = ConversationPage{Conversation: Conversation{ID: "c1", Contact: "Ada"}, LastPage: 1}
	client.subscribeErr = errors.New("refused")
	client.mu.Unlock()

	e.Open("c1")

	ev, ok := nextStreamEvent(t, ch)
	if !ok || ev.Type != EventStreamDown {
		t.Fatalf("expected stream down on subscribe failure, got %+v (ok=%v)", ev, ok)
	}
	if ev.Error == "" {
		t.Error("expected error detail on stream down event")
	}
}
