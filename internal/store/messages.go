package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Direction indicates which side of the conversation authored a message.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Message represents a stored message. IDs are assigned by the database and
// ascend in insertion order, which is what the client's ordering invariant
// leans on.
type Message struct {
	ID             int64
	ConversationID string
	TempID         string
	Content        string
	Direction      Direction
	Status         string
	CreatedAt      time.Time
	DeliveredAt    time.Time
}

// AppendMessage stores a message and updates the owning conversation's
// preview in the same transaction.
func (s *Store) AppendMessage(conversationID, tempID, content string, direction Direction) (*Message, error) {
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO messages (conversation_id, temp_id, content, direction, status, created_at, delivered_at)
		VALUES (?, ?, ?, ?, 'sent', ?, ?)
	`, conversationID, tempID, content, direction, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE conversations SET last_message_preview = ?, last_message_at = ? WHERE id = ?
	`, content, now, conversationID); err != nil {
		return nil, fmt.Errorf("update conversation preview: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		TempID:         tempID,
		Content:        content,
		Direction:      direction,
		Status:         "sent",
		CreatedAt:      now,
		DeliveredAt:    now,
	}, nil
}

// GetMessagesPage retrieves one page of messages for a conversation. Page 1
// is the newest; messages within a page are returned in ascending id order.
// The second return value is the last page number.
func (s *Store) GetMessagesPage(conversationID string, page, perPage int) ([]*Message, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	count, err := s.CountMessages(conversationID)
	if err != nil {
		return nil, 0, err
	}
	lastPage := (count + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	rows, err := s.db.Query(`
		SELECT id, conversation_id, temp_id, content, direction, status, created_at, delivered_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, conversationID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		var deliveredAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.TempID, &m.Content, &m.Direction,
			&m.Status, &m.CreatedAt, &deliveredAt); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		if deliveredAt.Valid {
			m.DeliveredAt = deliveredAt.Time
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Reverse to get ascending id order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, lastPage, nil
}

// CountMessages returns the number of messages in a conversation.
func (s *Store) CountMessages(conversationID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}
