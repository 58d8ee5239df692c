package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/usecase"
)

type fakeAccountRepo struct {
	accounts map[string]*domain.Account
}

func (r *fakeAccountRepo) ByPlatformAccount(_ context.Context, id string) (*domain.Account, error) {
	return r.accounts[id], nil
}

type fakeRuleRepo struct {
	rules []*domain.AutomationRule
}

func (r *fakeRuleRepo) ListActive(_ context.Context, _ string) ([]*domain.AutomationRule, error) {
	return r.rules, nil
}

type fakeConvRepo struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
}

func (r *fakeConvRepo) GetByParticipant(_ context.Context, ws, platform, participant string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.convs[ws+"|"+platform+"|"+participant], nil
}

func (r *fakeConvRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.convs == nil {
		r.convs = make(map[string]*domain.Conversation)
	}
	r.convs[conv.WorkspaceID+"|"+conv.Platform+"|"+conv.ParticipantID] = conv
	return nil
}

func (r *fakeConvRepo) RecordMessage(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type fakeMsgRepo struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (r *fakeMsgRepo) Append(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, *msg)
	return nil
}

func (r *fakeMsgRepo) RecentHistory(_ context.Context, _ string, _ int) ([]domain.Message, error) {
	return nil, nil
}

func (r *fakeMsgRepo) LastAIMessage(_ context.Context, _ string) (*domain.Message, error) {
	return nil, nil
}

func (r *fakeMsgRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeMsgRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *fakeMsgRepo) last() domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

type fakeCtxRepo struct{}

func (fakeCtxRepo) Insert(_ context.Context, _ []*domain.ConversationContext) error { return nil }
func (fakeCtxRepo) ActiveForConversation(_ context.Context, _ string, _ time.Time) ([]*domain.ConversationContext, error) {
	return nil, nil
}
func (fakeCtxRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type fakePublisher struct {
	mu       sync.Mutex
	requests []*domain.PublishRequest
	notify   chan *domain.PublishRequest
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{notify: make(chan *domain.PublishRequest, 8)}
}

func (p *fakePublisher) Publish(_ context.Context, req *domain.PublishRequest) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	p.notify <- req
	return "pub-1", nil
}

func (p *fakePublisher) PublishCompressed(_ context.Context, req *domain.PublishRequest) (string, error) {
	return p.Publish(nil, req)
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type testHarness struct {
	svc   *AutomationService
	pub   *fakePublisher
	msgs  *fakeMsgRepo
	queue *DelayQueue
	gov   *usecase.Governor
}

// fixedSource makes every Float64 draw 0.5, which passes the full-sampling
// gate and leaves Naturalize's transforms unfired.
type fixedSource struct{}

func (fixedSource) Int63() int64 { return 1 << 62 }
func (fixedSource) Seed(int64)   {}

func newHarness(t *testing.T, rules []*domain.AutomationRule) *testHarness {
	t.Helper()

	accounts := &fakeAccountRepo{accounts: map[string]*domain.Account{
		"acct1": {
			ID: "a1", WorkspaceID: "ws1", Platform: "instagram",
			PlatformAccountID: "acct1", Username: "shop", AccessToken: "tok",
		},
	}}
	msgs := &fakeMsgRepo{}
	memory := usecase.NewMemoryUsecase(&fakeConvRepo{}, msgs, fakeCtxRepo{}, nil, 0)
	generator := usecase.NewGenerator(nil, memory, nil, usecase.GeneratorConfig{})
	governor := usecase.NewGovernor(usecase.GovernorConfig{
		DailyCap:          100,
		SamplingRate:      1.0,
		DelayCeiling:      time.Minute,
		PerParticipantCap: 100,
	}, usecase.NewRuntimeState())
	pub := newFakePublisher()
	queue := NewDelayQueue()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = queue.Shutdown(ctx)
	})

	svc := NewAutomationService(
		usecase.NewDeduplicator(100),
		accounts,
		&fakeRuleRepo{rules: rules},
		usecase.NewRuleMatcher(),
		memory,
		generator,
		governor,
		usecase.NewDeliveryPipeline(pub),
		queue,
	)
	return &testHarness{svc: svc, pub: pub, msgs: msgs, queue: queue, gov: governor}
}

func commentRule() *domain.AutomationRule {
	return &domain.AutomationRule{
		ID:          "r1",
		WorkspaceID: "ws1",
		Type:        domain.RuleTypeComment,
		Trigger:     domain.Trigger{Kind: domain.TriggerKeyword, Keywords: []string{"price"}},
		Responses:   []string{"Check your DM!"},
		Active:      true,
	}
}

func commentEvent(id string) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		Kind:       domain.EventComment,
		ExternalID: id,
		AccountID:  "acct1",
		SenderID:   "u1",
		SenderName: "alice",
		Content:    "what is the price of this?",
		Timestamp:  time.Now(),
	}
}

func waitPublish(t *testing.T, pub *fakePublisher) *domain.PublishRequest {
	t.Helper()
	select {
	case req := <-pub.notify:
		return req
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for publish")
		return nil
	}
}

func TestHandleEventRepliesToMatchingComment(t *testing.T) {
	h := newHarness(t, []*domain.AutomationRule{commentRule()})

	h.svc.HandleEvent(context.Background(), commentEvent("c1"))

	req := waitPublish(t, h.pub)
	if req.Kind != domain.ContentReplyComment {
		t.Errorf("kind = %s, want reply_comment", req.Kind)
	}
	if req.TargetID != "c1" {
		t.Errorf("target = %s, want c1", req.TargetID)
	}
	if req.AccessToken != "tok" {
		t.Errorf("token = %s", req.AccessToken)
	}
	if req.Text == "" {
		t.Error("empty reply text")
	}

	// user message plus the delivered AI message land in memory
	deadline := time.Now().Add(2 * time.Second)
	for h.msgs.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.msgs.count() != 2 {
		t.Fatalf("stored %d messages, want 2", h.msgs.count())
	}
	last := h.msgs.last()
	if !last.IsAI() || last.RuleID != "r1" {
		t.Errorf("last message = %+v, want ai message tagged r1", last)
	}
}

func TestHandleEventSuppressesDuplicates(t *testing.T) {
	h := newHarness(t, []*domain.AutomationRule{commentRule()})
	ctx := context.Background()

	h.svc.HandleEvent(ctx, commentEvent("c1"))
	waitPublish(t, h.pub)
	h.svc.HandleEvent(ctx, commentEvent("c1"))

	time.Sleep(100 * time.Millisecond)
	if h.pub.count() != 1 {
		t.Fatalf("published %d times, want 1", h.pub.count())
	}
}

func TestHandleEventIgnoresUnconnectedAccount(t *testing.T) {
	h := newHarness(t, []*domain.AutomationRule{commentRule()})

	ev := commentEvent("c1")
	ev.AccountID = "unknown"
	h.svc.HandleEvent(context.Background(), ev)

	time.Sleep(100 * time.Millisecond)
	if h.pub.count() != 0 {
		t.Fatalf("published %d times, want 0", h.pub.count())
	}
}

func TestHandleEventNoMatchingRule(t *testing.T) {
	h := newHarness(t, []*domain.AutomationRule{commentRule()})

	ev := commentEvent("c1")
	ev.Content = "just passing by"
	h.svc.HandleEvent(context.Background(), ev)

	time.Sleep(100 * time.Millisecond)
	if h.pub.count() != 0 {
		t.Fatalf("published %d times, want 0", h.pub.count())
	}
}

func TestHandleEventAlwaysOnAICommentUsesPricingPool(t *testing.T) {
	aiRule := &domain.AutomationRule{
		ID:          "r3",
		WorkspaceID: "ws1",
		Type:        domain.RuleTypeComment,
		Trigger:     domain.Trigger{Kind: domain.TriggerAlwaysOnAI},
		Active:      true,
	}
	h := newHarness(t, []*domain.AutomationRule{aiRule})
	h.gov.SetRand(rand.New(fixedSource{}))

	ev := commentEvent("c7")
	ev.Content = "how much is this piece?"
	h.svc.HandleEvent(context.Background(), ev)

	req := waitPublish(t, h.pub)
	if req.Kind != domain.ContentReplyComment {
		t.Errorf("kind = %s, want reply_comment", req.Kind)
	}
	pool := usecase.DefaultReplyPools.Pick(usecase.IntentPricing, usecase.LangEnglish)
	found := false
	for _, p := range pool {
		if p == req.Text {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q not from the english pricing pool %v", req.Text, pool)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.msgs.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.msgs.count() != 2 {
		t.Fatalf("stored %d messages, want 2", h.msgs.count())
	}
	last := h.msgs.last()
	if !last.IsAI() || last.RuleID != "r3" || last.Content != req.Text {
		t.Errorf("last message = %+v, want the published ai reply tagged r3", last)
	}
	if h.pub.count() != 1 {
		t.Fatalf("published %d times, want 1", h.pub.count())
	}
}

func TestHandleEventDMTargetsSender(t *testing.T) {
	dmRule := &domain.AutomationRule{
		ID:          "r2",
		WorkspaceID: "ws1",
		Type:        domain.RuleTypeDM,
		Trigger:     domain.Trigger{Kind: domain.TriggerAlwaysOnAI},
		Active:      true,
	}
	h := newHarness(t, []*domain.AutomationRule{dmRule})

	h.svc.HandleEvent(context.Background(), &domain.WebhookEvent{
		Kind:        domain.EventDM,
		ExternalID:  "m1",
		AccountID:   "acct1",
		SenderID:    "u9",
		RecipientID: "acct1",
		Content:     "hi, do you ship to Pune?",
		Timestamp:   time.Now(),
	})

	req := waitPublish(t, h.pub)
	if req.Kind != domain.ContentDM {
		t.Errorf("kind = %s, want dm", req.Kind)
	}
	if req.TargetID != "u9" {
		t.Errorf("target = %s, want sender id", req.TargetID)
	}
}
