// Package api implements the engine's backend capability over HTTP JSON and
// a server-sent-event push stream.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/engine"
)

// Client talks to the CRM backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the given endpoint. The token rides along as a
// bearer credential on every request, including the stream.
func New(endpoint, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(endpoint, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SendMessage delivers one outbound message, tagged with its temp id.
func (c *Client) SendMessage(ctx context.Context, conversationID, tempID, text string) (engine.Message, error) {
	var dto messageDTO
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/api/conversations/%s/messages", conversationID),
		sendRequest{TempID: tempID, Content: text}, &dto)
	if err != nil {
		return engine.Message{}, fmt.Errorf("send message: %w", err)
	}
	return dto.toEngine(), nil
}

// FetchConversations lists inbox entries, most recent first.
func (c *Client) FetchConversations(ctx context.Context) ([]engine.Conversation, error) {
	var dtos []conversationDTO
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &dtos); err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	out := make([]engine.Conversation, len(dtos))
	for i, d := range dtos {
		out[i] = d.toEngine()
	}
	return out, nil
}

// FetchConversation loads one conversation with its newest message page.
func (c *Client) FetchConversation(ctx context.Context, conversationID string) (engine.ConversationPage, error) {
	var dto conversationPageDTO
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/conversations/%s", conversationID), nil, &dto)
	if err != nil {
		return engine.ConversationPage{}, fmt.Errorf("fetch conversation: %w", err)
	}
	conv := dto.Conversation.toEngine()
	conv.Messages = toEngineMessages(dto.Messages)
	return engine.ConversationPage{Conversation: conv, LastPage: dto.LastPage}, nil
}

// FetchOlderMessages fetches one page of older history; page 1 is the newest.
func (c *Client) FetchOlderMessages(ctx context.Context, conversationID string, page int) (engine.HistoryPage, error) {
	var dto historyPageDTO
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/api/conversations/%s/messages?page=%d", conversationID, page), nil, &dto)
	if err != nil {
		return engine.HistoryPage{}, fmt.Errorf("fetch older messages: %w", err)
	}
	return engine.HistoryPage{
		Messages: toEngineMessages(dto.Messages),
		LastPage: dto.LastPage,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
