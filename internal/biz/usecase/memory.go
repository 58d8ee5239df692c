package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

// DefaultRetention is the conversation-memory retention window.
const DefaultRetention = 72 * time.Hour

// MemoryUsecase persists per-participant history and derived context with
// expiry. Writes never depend on analyzer availability: a failed analysis
// degrades to neutral/empty signals and the message is stored regardless.
type MemoryUsecase struct {
	convRepo repo.ConversationRepo
	msgRepo  repo.MessageRepo
	ctxRepo  repo.ContextRepo
	llm      repo.LLMRepo

	retention time.Duration
	now       func() time.Time
}

// NewMemoryUsecase creates a memory usecase. A non-positive retention falls
// back to the default window.
func NewMemoryUsecase(
	convRepo repo.ConversationRepo,
	msgRepo repo.MessageRepo,
	ctxRepo repo.ContextRepo,
	llm repo.LLMRepo,
	retention time.Duration,
) *MemoryUsecase {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryUsecase{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		ctxRepo:   ctxRepo,
		llm:       llm,
		retention: retention,
		now:       time.Now,
	}
}

// GetOrCreateConversation looks up the conversation for a participant,
// creating it with a zero message count on first contact.
func (uc *MemoryUsecase) GetOrCreateConversation(ctx context.Context, workspaceID, platform, participantID, username string) (*domain.Conversation, error) {
	conv, err := uc.convRepo.GetByParticipant(ctx, workspaceID, platform, participantID)
	if err != nil {
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	conv = &domain.Conversation{
		ID:                  uuid.NewString(),
		WorkspaceID:         workspaceID,
		Platform:            platform,
		ParticipantID:       participantID,
		ParticipantUsername: username,
		CreatedAt:           uc.now(),
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// StoreMessage appends a message and updates conversation counters. For
// user-sent messages it derives context rows (sentiment, topics, intent)
// that expire after the retention window; AI messages skip analysis.
func (uc *MemoryUsecase) StoreMessage(ctx context.Context, conversationID, externalID string, sender domain.Sender, content, ruleID string) (*domain.Message, error) {
	now := uc.now()
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		ExternalID:     externalID,
		Sender:         sender,
		Content:        content,
		RuleID:         ruleID,
		CreatedAt:      now,
	}

	if sender == domain.SenderUser {
		analysis := uc.analyze(ctx, content)
		msg.Sentiment = analysis.Sentiment
		msg.Topics = analysis.Topics
		if rows := uc.contextRows(conversationID, analysis, now); len(rows) > 0 {
			if err := uc.ctxRepo.Insert(ctx, rows); err != nil {
				// Context rows are best-effort; the message write is not.
				log.Warn().Err(err).Str("conversation", conversationID).Msg("store context rows")
			}
		}
	}

	if err := uc.msgRepo.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := uc.convRepo.RecordMessage(ctx, conversationID, now); err != nil {
		return nil, fmt.Errorf("record message: %w", err)
	}
	return msg, nil
}

// History returns the most recent limit messages in chronological order.
func (uc *MemoryUsecase) History(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	return uc.msgRepo.RecentHistory(ctx, conversationID, limit)
}

// Context returns the non-expired derived context rows.
func (uc *MemoryUsecase) Context(ctx context.Context, conversationID string) ([]*domain.ConversationContext, error) {
	return uc.ctxRepo.ActiveForConversation(ctx, conversationID, uc.now())
}

// LastAIMessage returns the newest AI-authored message, or nil.
func (uc *MemoryUsecase) LastAIMessage(ctx context.Context, conversationID string) (*domain.Message, error) {
	return uc.msgRepo.LastAIMessage(ctx, conversationID)
}

// CleanupExpired deletes expired context rows and messages older than the
// retention cutoff. Driven by the sweeper, independent of the request path.
func (uc *MemoryUsecase) CleanupExpired(ctx context.Context) (int64, error) {
	now := uc.now()

	ctxDeleted, err := uc.ctxRepo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired context: %w", err)
	}
	msgDeleted, err := uc.msgRepo.DeleteOlderThan(ctx, now.Add(-uc.retention))
	if err != nil {
		return ctxDeleted, fmt.Errorf("delete old messages: %w", err)
	}
	return ctxDeleted + msgDeleted, nil
}

// analyze runs content analysis, degrading to neutral/empty on failure.
func (uc *MemoryUsecase) analyze(ctx context.Context, content string) *domain.ContentAnalysis {
	if uc.llm == nil {
		return domain.NeutralAnalysis(content)
	}
	analysis, err := uc.llm.Analyze(ctx, content)
	if err != nil || analysis == nil {
		log.Warn().Err(err).Str("content", truncate(content, 50)).Msg("analysis degraded to neutral")
		return domain.NeutralAnalysis(content)
	}
	if analysis.Sentiment == "" {
		analysis.Sentiment = "neutral"
	}
	if len(analysis.Topics) > 3 {
		analysis.Topics = analysis.Topics[:3]
	}
	return analysis
}

func (uc *MemoryUsecase) contextRows(conversationID string, a *domain.ContentAnalysis, now time.Time) []*domain.ConversationContext {
	expires := now.Add(uc.retention)
	var rows []*domain.ConversationContext

	if a.Sentiment != "" {
		rows = append(rows, &domain.ConversationContext{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Kind:           domain.ContextSentiment,
			Value:          a.Sentiment,
			Confidence:     a.Confidence,
			ExpiresAt:      expires,
		})
	}
	for _, topic := range a.Topics {
		rows = append(rows, &domain.ConversationContext{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Kind:           domain.ContextTopic,
			Value:          topic,
			Confidence:     a.Confidence,
			ExpiresAt:      expires,
		})
	}
	if a.IsQuestion {
		rows = append(rows, &domain.ConversationContext{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Kind:           domain.ContextIntent,
			Value:          "question",
			Confidence:     a.Confidence,
			ExpiresAt:      expires,
		})
	}
	return rows
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
