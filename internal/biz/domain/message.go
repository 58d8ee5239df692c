package domain

import (
	"strings"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one stored message in a conversation. ExternalID is empty for
// outbound messages that were never assigned a platform id.
type Message struct {
	ID             string
	ConversationID string
	ExternalID     string
	Sender         Sender
	Content        string
	Sentiment      string
	Topics         []string
	RuleID         string // set when the message was authored by a rule's automation
	CreatedAt      time.Time
}

// IsAI reports whether the message was authored by the engine.
func (m *Message) IsAI() bool {
	return m.Sender == SenderAI
}

// greetingMarkers are phrases treated as conversation openers.
var greetingMarkers = []string{"hi", "hey", "hello", "namaste", "good morning", "good evening"}

// HasGreeting reports whether the message content opens with a greeting.
func (m *Message) HasGreeting() bool {
	lower := strings.ToLower(strings.TrimSpace(m.Content))
	for _, g := range greetingMarkers {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}
