package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

type conversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates the sqlite-backed conversation repository.
func NewConversationRepo(store *Store) repo.ConversationRepo {
	return &conversationRepo{db: store.db}
}

func (r *conversationRepo) GetByParticipant(ctx context.Context, workspaceID, platform, participantID string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, platform, participant_id, participant_username,
		       message_count, last_message_at, created_at
		FROM conversations
		WHERE workspace_id = ? AND platform = ? AND participant_id = ?`,
		workspaceID, platform, participantID)

	var conv domain.Conversation
	var lastAt, createdAt int64
	err := row.Scan(&conv.ID, &conv.WorkspaceID, &conv.Platform, &conv.ParticipantID,
		&conv.ParticipantUsername, &conv.MessageCount, &lastAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	if lastAt > 0 {
		conv.LastMessageAt = time.Unix(lastAt, 0)
	}
	conv.CreatedAt = time.Unix(createdAt, 0)
	return &conv, nil
}

func (r *conversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	var lastAt int64
	if !conv.LastMessageAt.IsZero() {
		lastAt = conv.LastMessageAt.Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations
			(id, workspace_id, platform, participant_id, participant_username,
			 message_count, last_message_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.WorkspaceID, conv.Platform, conv.ParticipantID,
		conv.ParticipantUsername, conv.MessageCount, lastAt, conv.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *conversationRepo) RecordMessage(ctx context.Context, conversationID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET message_count = message_count + 1, last_message_at = ?
		WHERE id = ?`,
		at.Unix(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to record message on conversation: %w", err)
	}
	return nil
}
