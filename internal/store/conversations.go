package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation represents a stored conversation record.
type Conversation struct {
	ID                 string
	Contact            string
	LastMessagePreview string
	LastMessageAt      time.Time
	UnreadCount        int
	PipelineStageID    string
	Priority           string
	AssigneeID         string
	Archived           bool
	CreatedAt          time.Time
}

// CreateConversation creates a new conversation record.
func (s *Store) CreateConversation(contact, pipelineStageID, priority, assigneeID string) (*Conversation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO conversations (id, contact, pipeline_stage_id, priority, assignee_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, contact, pipelineStageID, priority, assigneeID, now)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return &Conversation{
		ID:              id,
		Contact:         contact,
		PipelineStageID: pipelineStageID,
		Priority:        priority,
		AssigneeID:      assigneeID,
		CreatedAt:       now,
	}, nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, contact, last_message_preview, last_message_at, unread_count,
		       pipeline_stage_id, priority, assignee_id, archived, created_at
		FROM conversations WHERE id = ?
	`, id)

	return scanConversation(row)
}

// ListConversations returns all conversations, most recently active first.
func (s *Store) ListConversations() ([]*Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, contact, last_message_preview, last_message_at, unread_count,
		       pipeline_stage_id, priority, assignee_id, archived, created_at
		FROM conversations
		ORDER BY last_message_at DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		c, err := scanConversationRows(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	return convs, rows.Err()
}

// TouchConversation updates a conversation's preview after a new message.
func (s *Store) TouchConversation(id, preview string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE conversations SET last_message_preview = ?, last_message_at = ? WHERE id = ?
	`, preview, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// SetArchived flips a conversation's archived flag.
func (s *Store) SetArchived(id string, archived bool) error {
	_, err := s.db.Exec(`UPDATE conversations SET archived = ? WHERE id = ?`, archived, id)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	return nil
}

// DeleteConversation deletes a conversation and its messages.
func (s *Store) DeleteConversation(id string) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row *sql.Row) (*Conversation, error) {
	return scanConversationFrom(row)
}

func scanConversationRows(rows *sql.Rows) (*Conversation, error) {
	return scanConversationFrom(rows)
}

func scanConversationFrom(r rowScanner) (*Conversation, error) {
	var c Conversation
	var lastAt sql.NullTime
	if err := r.Scan(&c.ID, &c.Contact, &c.LastMessagePreview, &lastAt, &c.UnreadCount,
		&c.PipelineStageID, &c.Priority, &c.AssigneeID, &c.Archived, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if lastAt.Valid {
		c.LastMessageAt = lastAt.Time
	}
	return &c, nil
}
