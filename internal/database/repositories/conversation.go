// Package repositories implements data access over the SQLite schema.
package repositories

import (
	"context"
	"fmt"

	"github.com/freellm/freellm-backend-go/internal/ai"
	"github.com/freellm/freellm-backend-go/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// ConversationRepository persists conversations and their messages.
// It backs the in-memory history as a write-through store.
type ConversationRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewConversationRepository creates a repository.
func NewConversationRepository(db *sqlx.DB, logger *logrus.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, logger: logger}
}

// SaveMessage appends a turn, creating the conversation row on first
// write. Errors are logged and returned but callers on the request
// path treat them as non-fatal.
func (r *ConversationRepository) SaveMessage(ctx context.Context, conversationID, role, content string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, updated_at, message_count)
		VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 1)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = CURRENT_TIMESTAMP,
			message_count = message_count + 1`,
		conversationID)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		conversationID, role, content)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// LoadMessages returns the last limit non-system turns in
// chronological order.
func (r *ConversationRepository) LoadMessages(ctx context.Context, conversationID string, limit int) ([]ai.ChatMessage, error) {
	var rows []database.Message
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, conversation_id, role, content, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := make([]ai.ChatMessage, len(rows))
	for i, row := range rows {
		messages[i] = ai.ChatMessage{Role: row.Role, Content: row.Content}
	}
	return messages, nil
}

// GetConversation returns one conversation row.
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*database.Conversation, error) {
	var conv database.Conversation
	if err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &conv, nil
}

// ListConversations returns the most recently updated conversations.
func (r *ConversationRepository) ListConversations(ctx context.Context, limit int) ([]database.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var convs []database.Conversation
	err := r.db.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		ORDER BY updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and its messages.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	return nil
}

// CleanupOld deletes conversations untouched for more than days days.
// Returns the number of removed conversations.
func (r *ConversationRepository) CleanupOld(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM conversations
		WHERE updated_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up conversations: %w", err)
	}
	removed, _ := result.RowsAffected()
	if removed > 0 {
		r.logger.WithField("removed", removed).Info("Cleaned up old conversations")
	}
	return removed, nil
}
