package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/storage/models"
	"github.com/intentbot/backend/pkg/logger"
)

// EnsureConversation returns an existing conversation id or creates a
// fresh conversation for the user, mirroring the save path of the
// original processor: an unknown or empty id starts a new conversation.
func (c *Client) EnsureConversation(conversationID, userID string) (string, error) {
	if conversationID != "" {
		var found string
		err := c.db.QueryRow(`SELECT id FROM conversations WHERE id = ?`, conversationID).Scan(&found)
		if err == nil {
			return found, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("failed to look up conversation: %w", err)
		}
	}

	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := c.db.Exec(
		`INSERT INTO conversations (id, user_id, created_at, last_updated) VALUES (?, ?, ?, ?)`,
		id, userID, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	logger.Debug("Conversation created", zap.String("conversation_id", id), zap.String("user_id", userID))
	return id, nil
}

// AppendTurn records one resolved turn: the user message and the bot
// reply, and bumps the conversation's last_updated.
func (c *Client) AppendTurn(conversationID, userMessage, intent, botResponse string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	insert := `INSERT INTO messages (id, conversation_id, sender, content, intent, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(insert, uuid.New().String(), conversationID, models.SenderUser, userMessage, intent, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert user message: %w", err)
	}

	_, err = tx.Exec(insert, uuid.New().String(), conversationID, models.SenderBot, botResponse, intent, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert bot message: %w", err)
	}

	_, err = tx.Exec(`UPDATE conversations SET last_updated = ? WHERE id = ?`, now.Unix(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	return nil
}

// GetHistory returns the most recent messages for a user across
// conversations, oldest first.
func (c *Client) GetHistory(userID string, limit int) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender, m.content, COALESCE(m.intent, ''), m.created_at
		FROM messages m
		JOIN conversations cv ON cv.id = m.conversation_id
		WHERE cv.user_id = ?
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Intent, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
