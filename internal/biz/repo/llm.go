package repo

import (
	"context"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// LLMRepo is the external language-model interface. Both operations carry a
// timeout inside the implementation; callers treat failures as degradable.
type LLMRepo interface {
	// Complete runs a chat completion and returns the raw reply text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)

	// Analyze derives sentiment, topics and question intent from one
	// inbound user message.
	Analyze(ctx context.Context, content string) (*domain.ContentAnalysis, error)
}
