package domain

import "time"

// ContextKind classifies a derived conversation signal.
type ContextKind string

const (
	ContextSentiment ContextKind = "sentiment"
	ContextTopic     ContextKind = "topic"
	ContextIntent    ContextKind = "intent"
)

// ConversationContext is one derived signal row with an expiry. Only rows
// with ExpiresAt in the future are ever read; expired rows are removed by
// the sweep job independently of read filtering.
type ConversationContext struct {
	ID             string
	ConversationID string
	Kind           ContextKind
	Value          string
	Confidence     float64
	ExpiresAt      time.Time
}

// Expired reports whether the row is past its expiry at the given instant.
func (c *ConversationContext) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// ContentAnalysis is the result of analyzing one inbound user message.
// A failed analysis degrades to the zero value with Sentiment "neutral".
type ContentAnalysis struct {
	Sentiment  string // positive, negative, neutral
	Topics     []string
	IsQuestion bool
	Confidence float64
}

// NeutralAnalysis is the degraded result used when the analyzer is
// unavailable; memory persistence must never depend on it.
func NeutralAnalysis(content string) *ContentAnalysis {
	return &ContentAnalysis{
		Sentiment:  "neutral",
		IsQuestion: containsQuestion(content),
		Confidence: 0.2,
	}
}

func containsQuestion(content string) bool {
	for _, r := range content {
		if r == '?' {
			return true
		}
	}
	return false
}
