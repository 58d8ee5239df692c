package domain

import "time"

// Conversation is the per-participant thread on one platform account.
// Exactly one exists per (workspace, platform, participant); it is never
// deleted by message count, only pruned by the memory retention sweep.
type Conversation struct {
	ID                  string
	WorkspaceID         string
	Platform            string
	ParticipantID       string
	ParticipantUsername string
	MessageCount        int
	LastMessageAt       time.Time
	CreatedAt           time.Time
}

// RecordMessage updates the counters for a newly appended message.
func (c *Conversation) RecordMessage(at time.Time) {
	c.MessageCount++
	c.LastMessageAt = at
}
