package repo

import (
	"context"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// ContextRepo is the derived-context repository interface.
type ContextRepo interface {
	// Insert writes derived context rows.
	Insert(ctx context.Context, rows []*domain.ConversationContext) error

	// ActiveForConversation returns rows with expires_at after now.
	ActiveForConversation(ctx context.Context, conversationID string, now time.Time) ([]*domain.ConversationContext, error)

	// DeleteExpired range-deletes rows with expires_at at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
