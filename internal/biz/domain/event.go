package domain

import "time"

// EventKind classifies a normalized inbound webhook event.
type EventKind string

const (
	EventComment EventKind = "comment"
	EventMention EventKind = "mention"
	EventDM      EventKind = "dm"
	EventEcho    EventKind = "echo"
)

// WebhookEvent is the normalized form of a platform push notification.
// Raw payloads (entry.changes, entry.messaging) are mapped into this union
// at the webhook boundary; everything downstream works on it.
type WebhookEvent struct {
	Kind        EventKind
	ExternalID  string // comment id, or message id for DMs
	AccountID   string // platform account the event was delivered for (entry id)
	SenderID    string
	SenderName  string
	RecipientID string // DM only
	Content     string
	MediaID     string // owning media for comments/mentions
	Timestamp   time.Time
}

// DedupKey returns the deduplication key for the event. DMs use a composite
// key because the platform reuses message ids across sender/recipient pairs.
func (e *WebhookEvent) DedupKey() string {
	if e.Kind == EventDM {
		return e.ExternalID + ":" + e.SenderID + ":" + e.RecipientID
	}
	return e.ExternalID
}

// IsEcho reports whether the event is a self-sent message echo.
func (e *WebhookEvent) IsEcho() bool {
	return e.Kind == EventEcho
}
