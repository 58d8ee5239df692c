package repo

import (
	"context"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// MessageRepo is the stored-message repository interface.
type MessageRepo interface {
	// Append persists one message.
	Append(ctx context.Context, msg *domain.Message) error

	// RecentHistory returns the most recent limit messages of a
	// conversation in chronological order.
	RecentHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// LastAIMessage returns the newest AI-authored message of a
	// conversation, or nil, nil when there is none.
	LastAIMessage(ctx context.Context, conversationID string) (*domain.Message, error)

	// DeleteOlderThan range-deletes messages created before the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
