package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
	"github.com/glowreach/reply-engine/internal/biz/usecase"
)

// AutomationService orchestrates one webhook event from deduplication to
// delayed delivery. Every early exit is a normal outcome, logged and
// swallowed: the webhook has already been acknowledged.
type AutomationService struct {
	dedup     *usecase.Deduplicator
	accounts  repo.AccountRepo
	rules     repo.RuleRepo
	matcher   *usecase.RuleMatcher
	memory    *usecase.MemoryUsecase
	generator *usecase.Generator
	governor  *usecase.Governor
	pipeline  *usecase.DeliveryPipeline
	queue     *DelayQueue

	randMu sync.Mutex
	rng    *rand.Rand
}

// NewAutomationService creates the automation orchestrator.
func NewAutomationService(
	dedup *usecase.Deduplicator,
	accounts repo.AccountRepo,
	rules repo.RuleRepo,
	matcher *usecase.RuleMatcher,
	memory *usecase.MemoryUsecase,
	generator *usecase.Generator,
	governor *usecase.Governor,
	pipeline *usecase.DeliveryPipeline,
	queue *DelayQueue,
) *AutomationService {
	return &AutomationService{
		dedup:     dedup,
		accounts:  accounts,
		rules:     rules,
		matcher:   matcher,
		memory:    memory,
		generator: generator,
		governor:  governor,
		pipeline:  pipeline,
		queue:     queue,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the random source, for deterministic tests.
func (s *AutomationService) SetRand(rng *rand.Rand) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rng = rng
}

// HandleEvent runs the full event flow: dedup, account and rule resolution,
// memory write, cadence gate, reply composition and delayed delivery.
func (s *AutomationService) HandleEvent(ctx context.Context, ev *domain.WebhookEvent) {
	key := ev.DedupKey()
	if s.dedup.IsProcessed(key) {
		log.Debug().Str("key", key).Msg("duplicate event skipped")
		return
	}
	s.dedup.MarkProcessed(key)

	account, err := s.accounts.ByPlatformAccount(ctx, ev.AccountID)
	if err != nil {
		log.Error().Err(err).Str("account", ev.AccountID).Msg("account lookup failed")
		return
	}
	if account == nil {
		log.Debug().Str("account", ev.AccountID).Msg("event for unconnected account")
		return
	}

	activeRules, err := s.rules.ListActive(ctx, account.WorkspaceID)
	if err != nil {
		log.Error().Err(err).Str("workspace", account.WorkspaceID).Msg("rule listing failed")
		return
	}
	rule := s.matcher.Match(ev, activeRules)
	if rule == nil {
		return
	}

	// Memory is best-effort: a storage failure must not block the reply.
	var conversationID string
	conv, err := s.memory.GetOrCreateConversation(ctx, account.WorkspaceID, account.Platform, ev.SenderID, ev.SenderName)
	if err != nil {
		log.Warn().Err(err).Str("sender", ev.SenderID).Msg("conversation unavailable, replying without memory")
	} else {
		conversationID = conv.ID
		if _, err := s.memory.StoreMessage(ctx, conversationID, ev.ExternalID, domain.SenderUser, ev.Content, ""); err != nil {
			log.Warn().Err(err).Str("conversation", conversationID).Msg("user message not stored")
		}
	}

	if ok, reason := s.governor.ShouldRespond(ev); !ok {
		log.Info().Str("event", ev.ExternalID).Str("reason", reason).Msg("response withheld")
		return
	}
	s.matcher.RecordTrigger(rule.ID)

	text, err := s.composeReply(ctx, rule, conversationID, ev)
	if err != nil {
		log.Error().Err(err).Str("rule", rule.ID).Msg("reply composition failed")
		return
	}
	text = s.governor.Naturalize(text)

	delay := s.governor.ResponseDelay(ev.Content) +
		time.Duration(rule.Conditions.DelaySeconds)*time.Second
	req := buildPublishRequest(account, ev, text)

	log.Info().
		Str("event", ev.ExternalID).
		Str("rule", rule.ID).
		Dur("delay", delay).
		Msg("reply scheduled")

	ruleID := rule.ID
	s.queue.Schedule(delay, func(ctx context.Context) {
		s.deliver(ctx, req, conversationID, ruleID, text)
	})
}

// composeReply picks a canned rule response when the rule carries one, and
// generates otherwise. Always-on AI rules always generate.
func (s *AutomationService) composeReply(ctx context.Context, rule *domain.AutomationRule, conversationID string, ev *domain.WebhookEvent) (string, error) {
	if rule.Trigger.Kind != domain.TriggerAlwaysOnAI && len(rule.Responses) > 0 {
		s.randMu.Lock()
		text := rule.Responses[s.rng.Intn(len(rule.Responses))]
		s.randMu.Unlock()
		return text, nil
	}
	reply, err := s.generator.Generate(ctx, conversationID, ev.Content, "")
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// deliver runs the adaptive pipeline and records the AI message on success.
func (s *AutomationService) deliver(ctx context.Context, req *domain.PublishRequest, conversationID, ruleID, text string) {
	result, err := s.pipeline.Deliver(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("target", req.TargetID).Msg("delivery failed")
		return
	}
	log.Info().Str("method", result.Method).Str("platform_id", result.PlatformID).Msg("reply delivered")

	if conversationID != "" {
		if _, err := s.memory.StoreMessage(ctx, conversationID, result.PlatformID, domain.SenderAI, text, ruleID); err != nil {
			log.Warn().Err(err).Str("conversation", conversationID).Msg("ai message not stored")
		}
	}
}

func buildPublishRequest(account *domain.Account, ev *domain.WebhookEvent, text string) *domain.PublishRequest {
	req := &domain.PublishRequest{
		AccountID:   account.PlatformAccountID,
		AccessToken: account.AccessToken,
		Text:        text,
	}
	if ev.Kind == domain.EventDM {
		req.Kind = domain.ContentDM
		req.TargetID = ev.SenderID
	} else {
		req.Kind = domain.ContentReplyComment
		req.TargetID = ev.ExternalID
	}
	return req
}
