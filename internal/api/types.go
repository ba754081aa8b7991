package api

import (
	"time"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/engine"
)

type messageDTO struct {
	ID             int64      `json:"id"`
	TempID         string     `json:"temp_id,omitempty"`
	ConversationID string     `json:"conversation_id"`
	Content        string     `json:"content"`
	Direction      string     `json:"direction"`
	Status         string     `json:"status,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

type conversationDTO struct {
	ID                 string    `json:"id"`
	Contact            string    `json:"contact"`
	LastMessagePreview string    `json:"last_message_preview"`
	LastMessageAt      time.Time `json:"last_message_at"`
	UnreadCount        int       `json:"unread_count"`
	PipelineStageID    string    `json:"pipeline_stage_id,omitempty"`
	Priority           string    `json:"priority,omitempty"`
	AssigneeID         string    `json:"assignee_id,omitempty"`
	Archived           bool      `json:"archived"`
}

type conversationPageDTO struct {
	Conversation conversationDTO `json:"conversation"`
	Messages     []messageDTO    `json:"messages"`
	LastPage     int             `json:"last_page"`
}

type historyPageDTO struct {
	Messages []messageDTO `json:"messages"`
	LastPage int          `json:"last_page"`
}

type sendRequest struct {
	TempID  string `json:"temp_id"`
	Content string `json:"content"`
}

func (d messageDTO) toEngine() engine.Message {
	m := engine.Message{
		ID:             d.ID,
		TempID:         d.TempID,
		ConversationID: d.ConversationID,
		Content:        d.Content,
		Direction:      engine.Direction(d.Direction),
		Status:         engine.Status(d.Status),
		CreatedAt:      d.CreatedAt,
	}
	if d.DeliveredAt != nil {
		m.DeliveredAt = *d.DeliveredAt
	}
	return m
}

func (d conversationDTO) toEngine() engine.Conversation {
	return engine.Conversation{
		ID:                 d.ID,
		Contact:            d.Contact,
		LastMessagePreview: d.LastMessagePreview,
		LastMessageAt:      d.LastMessageAt,
		UnreadCount:        d.UnreadCount,
		PipelineStageID:    d.PipelineStageID,
		Priority:           d.Priority,
		AssigneeID:         d.AssigneeID,
		Archived:           d.Archived,
	}
}

func toEngineMessages(dtos []messageDTO) []engine.Message {
	out := make([]engine.Message, len(dtos))
	for i, d := range dtos {
		out[i] = d.toEngine()
	}
	return out
}
