package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/store"
)

func setupServerTest(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(st, "test-token", 3), st
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	srv, _ := setupServerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCreateAndListConversations(t *testing.T) {
	srv, _ := setupServerTest(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/conversations", createConversationRequest{
		Contact:  "Maya Chen",
		Priority: "high",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created conversationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if created.ID == "" {
		t.Error("Expected created conversation to have an id")
	}
	if created.Contact != "Maya Chen" {
		t.Errorf("Expected contact 'Maya Chen', got %q", created.Contact)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/conversations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var listed []conversationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("Expected the created conversation in the list, got %+v", listed)
	}
}

func TestCreateConversationRequiresContact(t *testing.T) {
	srv, _ := setupServerTest(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/conversations", createConversationRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetConversationReturnsNewestPage(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := st.AppendMessage(conv.ID, "", fmt.Sprintf("msg %d", i), store.DirectionInbound); err != nil {
			t.Fatalf("AppendMessage() error: %v", err)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/conversations/"+conv.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page conversationPageDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if page.Conversation.ID != conv.ID {
		t.Errorf("Expected conversation %s, got %s", conv.ID, page.Conversation.ID)
	}
	// Page size 3, five messages: newest page holds the last three ascending.
	if len(page.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(page.Messages))
	}
	if page.Messages[0].Content != "msg 3" || page.Messages[2].Content != "msg 5" {
		t.Errorf("Expected newest page msg 3..msg 5, got %q..%q",
			page.Messages[0].Content, page.Messages[2].Content)
	}
	if page.LastPage != 2 {
		t.Errorf("Expected last page 2, got %d", page.LastPage)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	srv, _ := setupServerTest(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/conversations/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetMessagesOlderPage(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := st.AppendMessage(conv.ID, "", fmt.Sprintf("msg %d", i), store.DirectionInbound); err != nil {
			t.Fatalf("AppendMessage() error: %v", err)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/conversations/"+conv.ID+"/messages?page=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var page historyPageDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("Expected 2 messages on the oldest page, got %d", len(page.Messages))
	}
	if page.Messages[0].Content != "msg 1" || page.Messages[1].Content != "msg 2" {
		t.Errorf("Expected oldest page msg 1, msg 2, got %q, %q",
			page.Messages[0].Content, page.Messages[1].Content)
	}
}

func TestGetMessagesRejectsInvalidPage(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/conversations/"+conv.ID+"/messages?page=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestPostMessageEchoesTempID(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", sendRequest{
		TempID:  "tmp-123",
		Content: "hello there",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var msg messageDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if msg.ID == 0 {
		t.Error("Expected a server-assigned message id")
	}
	if msg.TempID != "tmp-123" {
		t.Errorf("Expected temp id echoed back, got %q", msg.TempID)
	}
	if msg.Direction != "outbound" {
		t.Errorf("Expected default direction outbound, got %q", msg.Direction)
	}

	// Preview updated on the conversation.
	got, err := st.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.LastMessagePreview != "hello there" {
		t.Errorf("Expected preview 'hello there', got %q", got.LastMessagePreview)
	}
}

func TestPostMessageInbound(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", sendRequest{
		Content:   "customer reply",
		Direction: "inbound",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	var msg messageDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if msg.Direction != "inbound" {
		t.Errorf("Expected direction inbound, got %q", msg.Direction)
	}
}

func TestPostMessageValidation(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", sendRequest{
		Content: "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty content, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", sendRequest{
		Content:   "hi",
		Direction: "sideways",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad direction, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/conversations/missing/messages", sendRequest{
		Content: "hi",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown conversation, got %d", rec.Code)
	}
}

func TestStreamDeliversPostedMessages(t *testing.T) {
	srv, st := setupServerTest(t)

	conv, err := st.CreateConversation("Ana", "", "", "")
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/conversations/"+conv.ID+"/stream", nil)
	if err != nil {
		t.Fatalf("NewRequest() error: %v", err)
	}
	req.Header.Set("Authorization", "Bearer test-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Stream request error: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected content type text/event-stream, got %q", ct)
	}

	events := make(chan messageDTO, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			var msg messageDTO
			if err := json.Unmarshal([]byte(data), &msg); err != nil {
				continue
			}
			events <- msg
			return
		}
	}()

	// Give the stream handler time to subscribe before publishing.
	waitForSubscriber(t, srv.Hub(), conv.ID)

	rec := doRequest(t, srv, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", sendRequest{
		TempID:  "tmp-9",
		Content: "via stream",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	select {
	case msg := <-events:
		if msg.Content != "via stream" {
			t.Errorf("Expected content 'via stream', got %q", msg.Content)
		}
		if msg.TempID != "tmp-9" {
			t.Errorf("Expected temp id tmp-9, got %q", msg.TempID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for stream event")
	}
}

func waitForSubscriber(t *testing.T, hub *Hub, conversationID string) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.subs[conversationID])
		hub.mu.RUnlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for stream subscriber")
}

func TestHubNonBlockingPublish(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe("c1")
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(&store.Message{ID: int64(i + 1), ConversationID: "c1", Content: "x"})
	}

	// Buffer filled, overflow dropped, publisher never blocked.
	if got := len(sub); got != subscriberBuffer {
		t.Errorf("Expected %d buffered events, got %d", subscriberBuffer, got)
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("c1")
	hub.Unsubscribe("c1", sub)

	if _, ok := <-sub; ok {
		t.Error("Expected channel to be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish(&store.Message{ID: 1, ConversationID: "c1"})
}
