package repo

import (
	"context"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// RuleRepo is the automation-rule repository interface. Rules are owned and
// edited externally; the engine only lists the active set. Trigger shapes
// are normalized into the tagged union at load time.
type RuleRepo interface {
	// ListActive returns the workspace's active rules in evaluation order.
	ListActive(ctx context.Context, workspaceID string) ([]*domain.AutomationRule, error)
}

// AccountRepo resolves platform accounts and their credentials.
type AccountRepo interface {
	// ByPlatformAccount looks up the account an event was delivered for.
	// Returns nil, nil when the account is not connected to any workspace.
	ByPlatformAccount(ctx context.Context, platformAccountID string) (*domain.Account, error)
}
