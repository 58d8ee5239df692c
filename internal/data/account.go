package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

type accountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates the sqlite-backed account repository.
func NewAccountRepo(store *Store) repo.AccountRepo {
	return &accountRepo{db: store.db}
}

func (r *accountRepo) ByPlatformAccount(ctx context.Context, platformAccountID string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, platform, platform_account_id, username, access_token
		FROM accounts
		WHERE platform_account_id = ?`,
		platformAccountID)

	var a domain.Account
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.Platform, &a.PlatformAccountID, &a.Username, &a.AccessToken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &a, nil
}
