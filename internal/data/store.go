package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database shared by the repositories.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the engine database and ensures the
// schema exists.
func OpenStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		platform_account_id TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		type TEXT NOT NULL,
		trigger_kind TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		hashtags TEXT NOT NULL DEFAULT '[]',
		mention_flag INTEGER NOT NULL DEFAULT 0,
		always_on_ai INTEGER NOT NULL DEFAULT 0,
		responses TEXT NOT NULL DEFAULT '[]',
		delay_seconds INTEGER NOT NULL DEFAULT 0,
		max_per_day INTEGER NOT NULL DEFAULT 0,
		exclude_keywords TEXT NOT NULL DEFAULT '[]',
		timezone TEXT NOT NULL DEFAULT '',
		active_days TEXT NOT NULL DEFAULT '[]',
		active_start TEXT NOT NULL DEFAULT '',
		active_end TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_workspace ON rules(workspace_id, active, position)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		participant_username TEXT NOT NULL DEFAULT '',
		message_count INTEGER NOT NULL DEFAULT 0,
		last_message_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_participant
		ON conversations(workspace_id, platform, participant_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		sentiment TEXT NOT NULL DEFAULT '',
		topics TEXT NOT NULL DEFAULT '[]',
		rule_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS conversation_contexts (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_expires ON conversation_contexts(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_conversation ON conversation_contexts(conversation_id)`,
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		media_url TEXT NOT NULL DEFAULT '',
		scheduled_at INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		platform_id TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		failure TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_due ON scheduled_posts(status, scheduled_at)`,
}

// encodeStrings marshals a string slice for a TEXT column.
func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeStrings unmarshals a TEXT column into a string slice.
func decodeStrings(v string) []string {
	if v == "" || v == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil
	}
	return out
}
