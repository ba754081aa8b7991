package server

import (
	"time"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/store"
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
	TempID    string `json:"temp_id"`
	Content   string `json:"content"`
	Direction string `json:"direction,omitempty"`
}

type createConversationRequest struct {
	Contact         string `json:"contact"`
	PipelineStageID string `json:"pipeline_stage_id,omitempty"`
	Priority        string `json:"priority,omitempty"`
	AssigneeID      string `json:"assignee_id,omitempty"`
}

func messageToDTO(m *store.Message) messageDTO {
	d := messageDTO{
		ID:             m.ID,
		TempID:         m.TempID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		Direction:      string(m.Direction),
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
	if !m.DeliveredAt.IsZero() {
		at := m.DeliveredAt
		d.DeliveredAt = &at
	}
	return d
}

func messagesToDTO(msgs []*store.Message) []messageDTO {
	out := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = messageToDTO(m)
	}
	return out
}

func conversationToDTO(c *store.Conversation) conversationDTO {
	return conversationDTO{
		ID:                 c.ID,
		Contact:            c.Contact,
		LastMessagePreview: c.LastMessagePreview,
		LastMessageAt:      c.LastMessageAt,
		UnreadCount:        c.UnreadCount,
		PipelineStageID:    c.PipelineStageID,
		Priority:           c.Priority,
		AssigneeID:         c.AssigneeID,
		Archived:           c.Archived,
	}
}
