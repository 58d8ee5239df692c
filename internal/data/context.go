package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

type contextRepo struct {
	db *sql.DB
}

// NewContextRepo creates the sqlite-backed derived-context repository.
func NewContextRepo(store *Store) repo.ContextRepo {
	return &contextRepo{db: store.db}
}

func (r *contextRepo) Insert(ctx context.Context, rows []*domain.ConversationContext) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin context insert: %w", err)
	}
	defer tx.Rollback()

	for _, c := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_contexts (id, conversation_id, type, value, confidence, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.ConversationID, string(c.Kind), c.Value, c.Confidence, c.ExpiresAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert context row: %w", err)
		}
	}
	return tx.Commit()
}

func (r *contextRepo) ActiveForConversation(ctx context.Context, conversationID string, now time.Time) ([]*domain.ConversationContext, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, type, value, confidence, expires_at
		FROM conversation_contexts
		WHERE conversation_id = ? AND expires_at > ?
		ORDER BY expires_at DESC`,
		conversationID, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query contexts: %w", err)
	}
	defer rows.Close()

	var out []*domain.ConversationContext
	for rows.Next() {
		var c domain.ConversationContext
		var kind string
		var expires int64
		if err := rows.Scan(&c.ID, &c.ConversationID, &kind, &c.Value, &c.Confidence, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan context row: %w", err)
		}
		c.Kind = domain.ContextKind(kind)
		c.ExpiresAt = time.Unix(expires, 0)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contexts: %w", err)
	}
	return out, nil
}

func (r *contextRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversation_contexts WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired contexts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
