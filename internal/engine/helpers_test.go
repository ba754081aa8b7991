package engine

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClient is a controllable Client for engine tests.
type fakeClient struct {
	mu sync.Mutex

	sendErr  error
	sent     []sentCall
	sendDone chan struct{}

	convPage ConversationPage
	convErr  error

	pages    map[int]HistoryPage
	pageErr  error
	pageGate chan struct{}
	fetched  []int

	convs []Conversation

	subscribeErr error
	onMessage    func(Message)
	onStatus     func(bool)
	stopped      int
}

type sentCall struct {
	conversationID string
	tempID         string
	text           string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:    make(map[int]HistoryPage),
		sendDone: make(chan struct{}, 16),
	}
}

func (f *fakeClient) SendMessage(_ context.Context, conversationID, tempID, text string) (Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, sentCall{conversationID, tempID, text})
	n := len(f.sent)
	err := f.sendErr
	f.mu.Unlock()

	defer func() { f.sendDone <- struct{}{} }()
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:             int64(n),
		TempID:         tempID,
		ConversationID: conversationID,
		Content:        text,
		Direction:      DirectionOutbound,
		Status:         StatusSent,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeClient) FetchConversations(_ context.Context) ([]Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convs, nil
}

func (f *fakeClient) FetchConversation(_ context.Context, _ string) (ConversationPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convPage, f.convErr
}

func (f *fakeClient) FetchOlderMessages(_ context.Context, _ string, page int) (HistoryPage, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, page)
	gate := f.pageGate
	err := f.pageErr
	hp := f.pages[page]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return HistoryPage{}, err
	}
	return hp, nil
}

func (f *fakeClient) SubscribeMessages(_ context.Context, _ string, onMessage func(Message), onStatus func(bool)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.onMessage = onMessage
	f.onStatus = onStatus
	return func() {
		f.mu.Lock()
		f.stopped++
		f.mu.Unlock()
	}, nil
}

// reportStatus drives the stream status callback the way a real stream's
// reconnect loop would.
func (f *fakeClient) reportStatus(connected bool) {
	f.mu.Lock()
	cb := f.onStatus
	f.mu.Unlock()
	if cb != nil {
		cb(connected)
	}
}

func (f *fakeClient) sentCalls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentCall, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeClient) waitSend(t *testing.T) {
	t.Helper()
	select {
	case <-f.sendDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for send")
	}
}

func setupEngineTest(t *testing.T) (*Engine, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	bus := NewEventBus(16)
	t.Cleanup(bus.Close)
	return New(client, bus), client
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// openAndLoad materializes a conversation synchronously for tests.
func openAndLoad(t *testing.T, e *Engine, client *fakeClient, conv Conversation, lastPage int) {
	t.Helper()
	client.mu.Lock()
	client.convPage = ConversationPage{Conversation: conv, LastPage: lastPage}
	client.mu.Unlock()

	e.Open(conv.ID)
	waitFor(t, "conversation load", func() bool {
		cur, ok := e.Current()
		return ok && cur.ID == conv.ID && len(cur.Messages) == len(conv.Messages)
	})
	waitFor(t, "stream subscription", func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.onMessage != nil
	})
}

func confirmed(id int64, conv, content string, dir Direction, at time.Time) Message {
	return Message{
		ID:             id,
		ConversationID: conv,
		Content:        content,
		Direction:      dir,
		Status:         StatusSent,
		CreatedAt:      at,
		DeliveredAt:    at,
	}
}
