package repo

import (
	"context"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// ConversationRepo is the conversation repository interface.
// One row exists per (workspace, platform, participant).
type ConversationRepo interface {
	// GetByParticipant looks up a conversation by its composite key.
	// Returns nil, nil when absent.
	GetByParticipant(ctx context.Context, workspaceID, platform, participantID string) (*domain.Conversation, error)

	// Create inserts a new conversation.
	Create(ctx context.Context, conv *domain.Conversation) error

	// RecordMessage bumps the message counter and last-message timestamp.
	RecordMessage(ctx context.Context, conversationID string, at time.Time) error
}
