package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowhq/ragchat/internal/domain"
)

// ChatRepository persists chat transcripts.
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Save writes the full message list for a chat. A chat with Version 0 is
// inserted; otherwise the update is guarded by the version the caller read,
// and a concurrent writer's interleaved save surfaces as ErrConflict
// instead of being silently overwritten. On success the chat's Version is
// advanced to the stored value.
func (r *ChatRepository) Save(ctx context.Context, chat *domain.Chat) error {
	messagesJSON, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	now := time.Now()

	if chat.Version == 0 {
		chat.CreatedAt = now
		chat.UpdatedAt = now
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO chats (id, messages, version, created_at, updated_at)
			VALUES (?, ?, 1, ?, ?)
		`, chat.ID, string(messagesJSON), chat.CreatedAt, chat.UpdatedAt)
		if err != nil {
			return err
		}
		chat.Version = 1
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE chats SET messages = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, string(messagesJSON), now, chat.ID, chat.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrConflict
	}
	chat.Version++
	chat.UpdatedAt = now
	return nil
}

// Get retrieves a chat by id, including its full message list.
func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.Chat, error) {
	chat := &domain.Chat{}
	var messagesJSON string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, messages, version, created_at, updated_at
		FROM chats WHERE id = ?
	`, id).Scan(&chat.ID, &messagesJSON, &chat.Version, &chat.CreatedAt, &chat.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messagesJSON), &chat.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return chat, nil
}

// List returns all chats, newest first, with their messages.
func (r *ChatRepository) List(ctx context.Context) ([]*domain.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, messages, version, created_at, updated_at
		FROM chats ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		chat := &domain.Chat{}
		var messagesJSON string
		if err := rows.Scan(&chat.ID, &messagesJSON, &chat.Version,
			&chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(messagesJSON), &chat.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages: %w", err)
		}
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

// Delete removes a chat by id. Deleting an unknown id returns ErrNotFound.
func (r *ChatRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
