package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

type scheduledPostRepo struct {
	db *sql.DB
}

// NewScheduledPostRepo creates the sqlite-backed scheduled-post repository.
func NewScheduledPostRepo(store *Store) repo.ScheduledPostRepo {
	return &scheduledPostRepo{db: store.db}
}

func (r *scheduledPostRepo) Due(ctx context.Context, now time.Time) ([]*domain.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, account_id, kind, caption, media_url,
		       scheduled_at, status, platform_id, method, failure
		FROM scheduled_posts
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC`,
		string(domain.PostPending), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledPost
	for rows.Next() {
		var p domain.ScheduledPost
		var kind, status string
		var scheduledAt int64
		err := rows.Scan(&p.ID, &p.WorkspaceID, &p.AccountID, &kind, &p.Caption,
			&p.MediaURL, &scheduledAt, &status, &p.PlatformID, &p.Method, &p.Failure)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled post: %w", err)
		}
		p.Kind = domain.ContentKind(kind)
		p.Status = domain.ScheduledPostStatus(status)
		p.ScheduledAt = time.Unix(scheduledAt, 0)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due posts: %w", err)
	}
	return out, nil
}

func (r *scheduledPostRepo) MarkPublished(ctx context.Context, id, platformID, method string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_posts
		SET status = ?, platform_id = ?, method = ?, failure = ''
		WHERE id = ?`,
		string(domain.PostPublished), platformID, method, id)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}
	return nil
}

func (r *scheduledPostRepo) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_posts
		SET status = ?, failure = ?
		WHERE id = ?`,
		string(domain.PostFailed), reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark post failed: %w", err)
	}
	return nil
}
