package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

func newTestGenerator(llm *fakeLLM) *Generator {
	memory, _, _, _ := newTestMemory(nil)
	var g *Generator
	if llm == nil {
		g = NewGenerator(nil, memory, nil, GeneratorConfig{})
	} else {
		g = NewGenerator(llm, memory, nil, GeneratorConfig{})
	}
	g.SetRand(rand.New(rand.NewSource(1)))
	return g
}

func TestGenerateWithoutLLMUsesFallbackPool(t *testing.T) {
	g := newTestGenerator(nil)

	reply, err := g.Generate(context.Background(), "conv1", "kaise ho", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reply.Fallback {
		t.Error("expected fallback reply")
	}
	if reply.Language != LangHinglish {
		t.Errorf("language = %s, want hinglish", reply.Language)
	}

	pool := DefaultReplyPools.Pick(DetectIntent("kaise ho"), LangHinglish)
	found := false
	for _, p := range pool {
		if p == reply.Text {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q not from the hinglish pool %v", reply.Text, pool)
	}
}

func TestGenerateRejectsRepeatedReply(t *testing.T) {
	llm := &fakeLLM{completion: "Thanks! 💛"}
	g := newTestGenerator(llm)
	ctx := context.Background()

	first, err := g.Generate(ctx, "conv1", "Nice", "")
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if first.Fallback || first.Text != "Thanks! 💛" {
		t.Fatalf("first reply = %+v, want llm text", first)
	}

	second, err := g.Generate(ctx, "conv1", "Nice", "")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if !second.Fallback {
		t.Error("expected fallback when llm repeats itself")
	}
	if second.Text == first.Text {
		t.Errorf("second reply %q repeats the first", second.Text)
	}
}

func TestGenerateFallsBackOnLLMError(t *testing.T) {
	llm := &fakeLLM{completeErr: errors.New("timeout")}
	g := newTestGenerator(llm)

	reply, err := g.Generate(context.Background(), "conv1", "hello", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reply.Fallback {
		t.Error("expected fallback on llm error")
	}
}

func TestGenerateFallsBackOnEmptyCompletion(t *testing.T) {
	llm := &fakeLLM{completion: `  ""  `}
	g := newTestGenerator(llm)

	reply, err := g.Generate(context.Background(), "conv1", "hello", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reply.Fallback {
		t.Error("expected fallback on empty completion")
	}
}

func TestGenerateShortensLongReplies(t *testing.T) {
	long := strings.Repeat("we appreciate your interest very much ", 4)
	llm := &fakeLLM{completion: long}
	g := newTestGenerator(llm)

	reply, err := g.Generate(context.Background(), "conv1", "tell me more", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(strings.Fields(reply.Text)) > 6 {
		t.Errorf("reply %q not shortened", reply.Text)
	}
}

func TestGenerateCollapsesLongPricingReplies(t *testing.T) {
	llm := &fakeLLM{completion: "The price of this piece depends on the materials and the amount of handwork involved, please contact us"}
	g := newTestGenerator(llm)

	reply, err := g.Generate(context.Background(), "conv1", "how much is it?", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if utf8.RuneCountInString(reply.Text) > DefaultGeneratorConfig.MaxReplyRunes {
		t.Errorf("pricing reply %q still over the length cap", reply.Text)
	}
	pool := DefaultReplyPools.Pick(IntentPricing, LangEnglish)
	found := false
	for _, p := range pool {
		if p == reply.Text {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("long pricing reply %q did not collapse to the pricing pool", reply.Text)
	}
}

func TestBuildPromptIncludesHistoryAndContext(t *testing.T) {
	memory, _, msgs, ctxs := newTestMemory(nil)
	msgs.msgs = append(msgs.msgs,
		domain.Message{ConversationID: "conv1", Sender: domain.SenderUser, Content: "hi there"},
		domain.Message{ConversationID: "conv1", Sender: domain.SenderAI, Content: "Hey! how can I help"},
	)
	ctxs.rows = append(ctxs.rows, &domain.ConversationContext{
		ConversationID: "conv1", Kind: domain.ContextTopic, Value: "earrings",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	g := NewGenerator(&fakeLLM{completion: "ok"}, memory, nil, GeneratorConfig{})
	prompt := g.buildPrompt(context.Background(), "conv1", "do you ship?")

	if !strings.Contains(prompt, "[them]: hi there") {
		t.Error("prompt missing user history line")
	}
	if !strings.Contains(prompt, "[you]: Hey! how can I help") {
		t.Error("prompt missing ai history line")
	}
	if !strings.Contains(prompt, "topic: earrings") {
		t.Error("prompt missing context row")
	}
	if !strings.Contains(prompt, "do not open with another greeting") {
		t.Error("prompt missing anti-greeting instruction after a greeting reply")
	}
	if !strings.Contains(prompt, "do you ship?") {
		t.Error("prompt missing current message")
	}
}

func TestBuildPromptGreetingCheckOutlivesHistoryWindow(t *testing.T) {
	memory, _, msgs, _ := newTestMemory(nil)
	msgs.msgs = append(msgs.msgs,
		domain.Message{ConversationID: "conv1", Sender: domain.SenderAI, Content: "Hi! welcome"},
		domain.Message{ConversationID: "conv1", Sender: domain.SenderUser, Content: "do you have earrings?"},
		domain.Message{ConversationID: "conv1", Sender: domain.SenderUser, Content: "silver ones"},
	)

	g := NewGenerator(&fakeLLM{completion: "ok"}, memory, nil, GeneratorConfig{HistoryLimit: 2})
	prompt := g.buildPrompt(context.Background(), "conv1", "and the price?")

	if strings.Contains(prompt, "Hi! welcome") {
		t.Error("greeting reply should have aged out of the prompt history")
	}
	if !strings.Contains(prompt, "do not open with another greeting") {
		t.Error("prompt missing anti-greeting instruction for an earlier greeting reply")
	}
}
