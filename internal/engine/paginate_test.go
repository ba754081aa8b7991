package engine

import (
	"errors"
	"testing"
	"time"
)

func historyConv(n int) Conversation {
	msgs := make([]Message, 0, n)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		msgs = append(msgs, confirmed(int64(100+i), "c1", "msg", DirectionInbound, base.Add(time.Duration(i)*time.Minute)))
	}
	return Conversation{ID: "c1", Contact: "Ada", Messages: msgs}
}

func TestLoadOlderPrepends(t *testing.T) {
	e, client := setupEngineTest(t)
	client.mu.Lock()
	client.pages[2] = HistoryPage{
		Messages: []Message{
			confirmed(90, "c1", "older a", DirectionInbound, time.Now()),
			confirmed(91, "c1", "older b", DirectionInbound, time.Now()),
		},
		LastPage: 3,
	}
	client.mu.Unlock()
	openAndLoad(t, e, client, historyConv(2), 3)

	if !e.HasMore("c1") {
		t.Fatal("expected hasMore after open with lastPage=3")
	}
	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}
	waitFor(t, "page applied", func() bool { return !e.IsLoadingOlder("c1") })

	cur, _ := e.Current()
	if len(cur.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(cur.Messages))
	}
	if cur.Messages[0].ID != 90 || cur.Messages[1].ID != 91 {
		t.Errorf("expected older messages at the front, got %d %d", cur.Messages[0].ID, cur.Messages[1].ID)
	}
	if !e.HasMore("c1") {
		t.Error("expected hasMore while page < lastPage")
	}
}

func TestLoadOlderReentrancyGuard(t *testing.T) {
	e, client := setupEngineTest(t)
	openAndLoad(t, e, client, historyConv(1), 5)

	e.mu.Lock()
	e.cursors["c1"].loading = true
	e.mu.Unlock()

	if err := e.LoadOlder("c1"); !errors.Is(err, ErrLoadInFlight) {
		t.Errorf("expected ErrLoadInFlight, got %v", err)
	}
}

func TestLoadOlderWithoutMore(t *testing.T) {
	e, client := setupEngineTest(t)
	openAndLoad(t, e, client, historyConv(1), 1)

	if err := e.LoadOlder("c1"); !errors.Is(err, ErrNoMoreHistory) {
		t.Errorf("expected ErrNoMoreHistory, got %v", err)
	}
}

func TestLoadOlderNotMaterialized(t *testing.T) {
	e, _ := setupEngineTest(t)

	if err := e.LoadOlder("ghost"); !errors.Is(err, ErrNotMaterialized) {
		t.Errorf("expected ErrNotMaterialized, got %v", err)
	}
}

func TestLoadOlderEmptyPageStops(t *testing.T) {
	e, client := setupEngineTest(t)
	client.mu.Lock()
	client.pages[2] = HistoryPage{LastPage: 5}
	client.mu.Unlock()
	openAndLoad(t, e, client, historyConv(1), 5)

	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}
	waitFor(t, "fetch resolved", func() bool { return !e.IsLoadingOlder("c1") })

	if e.HasMore("c1") {
		t.Error("expected hasMore=false after empty page")
	}
}

func TestLoadOlderFailureKeepsCursor(t *testing.T) {
	e, client := setupEngineTest(t)
	openAndLoad(t, e, client, historyConv(1), 5)

	client.mu.Lock()
	client.pageErr = errors.New("network down")
	client.mu.Unlock()

	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}
	waitFor(t, "fetch resolved", func() bool { return !e.IsLoadingOlder("c1") })

	// Cursor untouched: a retry fetches the same page.
	if !e.HasMore("c1") {
		t.Fatal("expected hasMore unchanged after failure")
	}
	client.mu.Lock()
	client.pageErr = nil
	client.pages[2] = HistoryPage{
		Messages: []Message{confirmed(90, "c1", "older", DirectionInbound, time.Now())},
		LastPage: 5,
	}
	client.mu.Unlock()

	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() retry error: %v", err)
	}
	waitFor(t, "retry applied", func() bool { return !e.IsLoadingOlder("c1") })

	client.mu.Lock()
	fetched := append([]int(nil), client.fetched...)
	client.mu.Unlock()
	if len(fetched) != 2 || fetched[0] != 2 || fetched[1] != 2 {
		t.Errorf("expected page 2 fetched twice, got %v", fetched)
	}

	cur, _ := e.Current()
	if len(cur.Messages) != 2 {
		t.Errorf("expected retry to land, got %d messages", len(cur.Messages))
	}
}

func TestLoadOlderStaleFailureNotSurfaced(t *testing.T) {
	client := newFakeClient()
	bus := NewEventBus(16)
	t.Cleanup(bus.Close)
	e := New(client, bus)
	ch := bus.Subscribe()

	openAndLoad(t, e, client, historyConv(1), 5)

	gate := make(chan struct{})
	client.mu.Lock()
	client.pageErr = errors.New("network down")
	client.pageGate = gate
	client.mu.Unlock()

	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}

	// The user leaves before the fetch fails.
	e.Close()
	close(gate)
	waitFor(t, "fetch resolved", func() bool { return !e.IsLoadingOlder("c1") })

	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case ev := <-ch:
			if ev.Type == EventOlderFailed {
				t.Fatal("expected stale failure to be dropped after close")
			}
		case <-deadline:
			return
		}
	}
}

func TestLoadOlderRetriedPageIsIdempotent(t *testing.T) {
	e, client := setupEngineTest(t)
	page := HistoryPage{
		Messages: []Message{
			confirmed(90, "c1", "older a", DirectionInbound, time.Now()),
			confirmed(91, "c1", "older b", DirectionInbound, time.Now()),
		},
		LastPage: 5,
	}
	client.mu.Lock()
	client.pages[2] = page
	client.pages[3] = page // same payload served again, as after a retry proxy
	client.mu.Unlock()
	openAndLoad(t, e, client, historyConv(1), 5)

	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}
	waitFor(t, "first page", func() bool { return !e.IsLoadingOlder("c1") })
	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}
	waitFor(t, "second page", func() bool { return !e.IsLoadingOlder("c1") })

	cur, _ := e.Current()
	if len(cur.Messages) != 3 {
		t.Errorf("expected no duplicates from repeated page data, got %d messages", len(cur.Messages))
	}
	// Zero new messages also stops pagination.
	if e.HasMore("c1") {
		t.Error("expected hasMore=false after an all-duplicate page")
	}
}

func TestLoadOlderStaleResultDropped(t *testing.T) {
	e, client := setupEngineTest(t)
	client.mu.Lock()
	client.pages[2] = HistoryPage{
		Messages: []Message{confirmed(90, "c1", "older", DirectionInbound, time.Now())},
		LastPage: 5,
	}
	client.mu.Unlock()
	openAndLoad(t, e, client, historyConv(1), 5)

	if err := e.LoadOlder("c1"); err != nil {
		t.Fatalf("LoadOlder() error: %v", err)
	}

	// Conversation switches before the page resolves; the result must not
	// leak into the new window.
	client.mu.Lock()
	client.convPage = ConversationPage{Conversation: Conversation{ID: "c2", Contact: "Grace"}, LastPage: 1}
	client.mu.Unlock()
	e.Open("c2")

	waitFor(t, "fetch resolved", func() bool { return !e.IsLoadingOlder("c1") })
	cur, ok := e.Current()
	if !ok || cur.ID != "c2" {
		t.Fatalf("expected c2 materialized, got %+v", cur)
	}
	if len(cur.Messages) != 0 {
		t.Errorf("expected stale page dropped, got %d messages", len(cur.Messages))
	}
}
