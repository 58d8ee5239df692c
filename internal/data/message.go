package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates the sqlite-backed message repository.
func NewMessageRepo(store *Store) repo.MessageRepo {
	return &messageRepo{db: store.db}
}

func (r *messageRepo) Append(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, conversation_id, external_id, sender, content, sentiment, topics, rule_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.ExternalID, string(msg.Sender), msg.Content,
		msg.Sentiment, encodeStrings(msg.Topics), msg.RuleID, msg.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *messageRepo) RecentHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, external_id, sender, content, sentiment, topics, rule_id, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query message history: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message history: %w", err)
	}

	// rows arrive newest first, callers want chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepo) LastAIMessage(ctx context.Context, conversationID string) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, external_id, sender, content, sentiment, topics, rule_id, created_at
		FROM messages
		WHERE conversation_id = ? AND sender = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		conversationID, string(domain.SenderAI))

	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	var sender, topics string
	var createdAt int64
	err := row.Scan(&m.ID, &m.ConversationID, &m.ExternalID, &sender, &m.Content,
		&m.Sentiment, &topics, &m.RuleID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	m.Sender = domain.Sender(sender)
	m.Topics = decodeStrings(topics)
	m.CreatedAt = time.Unix(createdAt, 0)
	return &m, nil
}
