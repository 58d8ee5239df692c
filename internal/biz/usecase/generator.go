package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/repo"
)

// maxRecentReplies bounds the anti-repetition history.
const maxRecentReplies = 100

// GeneratorConfig contains prompt and reply-shaping configuration.
type GeneratorConfig struct {
	SystemPrompt  string
	HistoryLimit  int     // messages included in the prompt
	MaxReplyRunes int     // replies longer than this are shortened
	Temperature   float32 // LLM sampling temperature
}

// DefaultGeneratorConfig is the built-in generation configuration.
var DefaultGeneratorConfig = GeneratorConfig{
	SystemPrompt: `You are replying to comments and DMs on a small business's social account. Sound like a real person typing on their phone: short, casual, warm, at most two short sentences. Match the language of the message (English, Hindi or Hinglish). Never use corporate filler like "Thank you for your valuable feedback". Output the reply text only, nothing else.`,
	HistoryLimit:  6,
	MaxReplyRunes: 50,
	Temperature:   0.7,
}

// Reply is a generated response. Confidence is heuristic and used for
// logging only, never for control flow.
type Reply struct {
	Text       string
	Language   Language
	Confidence float64
	Fallback   bool
}

// Generator produces contextually relevant replies via the LLM, with a
// deterministic intent/language fallback when the model is unavailable or
// repeats itself.
type Generator struct {
	llm    repo.LLMRepo
	memory *MemoryUsecase
	pools  ReplyPools
	cfg    GeneratorConfig

	mu          sync.Mutex
	rng         *rand.Rand
	recent      map[string]struct{}
	recentOrder []string
}

// NewGenerator creates a generator. Nil pools fall back to the defaults.
func NewGenerator(llm repo.LLMRepo, memory *MemoryUsecase, pools ReplyPools, cfg GeneratorConfig) *Generator {
	if pools == nil {
		pools = DefaultReplyPools
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultGeneratorConfig.HistoryLimit
	}
	if cfg.MaxReplyRunes <= 0 {
		cfg.MaxReplyRunes = DefaultGeneratorConfig.MaxReplyRunes
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultGeneratorConfig.SystemPrompt
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultGeneratorConfig.Temperature
	}
	return &Generator{
		llm:    llm,
		memory: memory,
		pools:  pools,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		recent: make(map[string]struct{}),
	}
}

// SetRand replaces the random source, for deterministic tests.
func (g *Generator) SetRand(rng *rand.Rand) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng = rng
}

// Generate produces a reply for one inbound user message.
func (g *Generator) Generate(ctx context.Context, conversationID, userMessage, personalityHint string) (*Reply, error) {
	lang := DetectLanguage(userMessage)
	intent := DetectIntent(userMessage)

	if g.llm == nil {
		return g.fallback(intent, lang, 0.4), nil
	}

	userPrompt := g.buildPrompt(ctx, conversationID, userMessage)
	system := g.cfg.SystemPrompt
	if personalityHint != "" {
		system += "\n\nVoice hint: " + personalityHint
	}

	raw, err := g.llm.Complete(ctx, system, userPrompt, g.cfg.Temperature)
	if err != nil {
		log.Warn().Err(err).Str("conversation", conversationID).Msg("llm failed, using deterministic fallback")
		return g.fallback(intent, lang, 0.4), nil
	}

	candidate := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if candidate == "" {
		return g.fallback(intent, lang, 0.4), nil
	}
	if g.isRecent(candidate) {
		log.Debug().Str("reply", truncate(candidate, 50)).Msg("duplicate reply discarded")
		return g.fallback(intent, lang, 0.6), nil
	}

	text := g.govern(candidate, lang)
	g.remember(text)
	return &Reply{Text: text, Language: lang, Confidence: 0.9}, nil
}

// buildPrompt assembles the bounded conversation prompt: recent role-tagged
// history, non-expired context signals, and the current message. History or
// context fetch failures degrade to a prompt without them.
func (g *Generator) buildPrompt(ctx context.Context, conversationID, userMessage string) string {
	var sb strings.Builder

	history, err := g.memory.History(ctx, conversationID, g.cfg.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Msg("prompt history unavailable")
	}
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, m := range history {
			if m.IsAI() {
				sb.WriteString(fmt.Sprintf("[you]: %s\n", m.Content))
			} else {
				sb.WriteString(fmt.Sprintf("[them]: %s\n", m.Content))
			}
		}
		sb.WriteString("\n")
	}

	rows, err := g.memory.Context(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Msg("prompt context unavailable")
	}
	if len(rows) > 0 {
		sb.WriteString("What you know about them:\n")
		for _, r := range rows {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Kind, r.Value))
		}
		sb.WriteString("\n")
	}

	last, err := g.memory.LastAIMessage(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Msg("last reply lookup unavailable")
	}
	if last != nil && last.HasGreeting() {
		sb.WriteString("You already greeted them earlier; do not open with another greeting.\n\n")
	}

	sb.WriteString("Their new message:\n")
	sb.WriteString(userMessage)
	return sb.String()
}

// govern shortens over-long replies: a pricing mention collapses to the
// short DM-style pricing reply, anything else is cut to its first words.
func (g *Generator) govern(text string, lang Language) string {
	if utf8.RuneCountInString(text) <= g.cfg.MaxReplyRunes {
		return text
	}
	if containsAny(strings.ToLower(text), pricingWords) {
		if pool := g.pools.Pick(IntentPricing, lang); len(pool) > 0 {
			g.mu.Lock()
			defer g.mu.Unlock()
			return pool[g.rng.Intn(len(pool))]
		}
	}
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// fallback picks a deterministic reply from the intent/language pool,
// preferring entries not returned recently.
func (g *Generator) fallback(intent Intent, lang Language, confidence float64) *Reply {
	pool := g.pools.Pick(intent, lang)
	if len(pool) == 0 {
		return &Reply{Text: "🙂", Language: lang, Confidence: 0.1, Fallback: true}
	}

	g.mu.Lock()
	start := g.rng.Intn(len(pool))
	g.mu.Unlock()

	text := pool[start]
	for i := 0; i < len(pool); i++ {
		c := pool[(start+i)%len(pool)]
		if !g.isRecent(c) {
			text = c
			break
		}
	}
	g.remember(text)
	return &Reply{Text: text, Language: lang, Confidence: confidence, Fallback: true}
}

func (g *Generator) isRecent(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.recent[text]
	return ok
}

func (g *Generator) remember(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.recent[text]; ok {
		return
	}
	g.recent[text] = struct{}{}
	g.recentOrder = append(g.recentOrder, text)
	if len(g.recentOrder) > maxRecentReplies {
		delete(g.recent, g.recentOrder[0])
		g.recentOrder = g.recentOrder[1:]
	}
}
