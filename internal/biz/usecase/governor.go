package usecase

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// GovernorConfig tunes the human-cadence gate.
type GovernorConfig struct {
	DailyCap          int           // replies per local day
	SamplingRate      float64       // fraction of eligible events answered
	MinGap            time.Duration // floor between consecutive replies
	MinDelay          time.Duration // stealth delay lower bound
	MaxDelay          time.Duration // stealth delay upper bound
	DelayCeiling      time.Duration // absolute delay cap
	ShortContentLen   int           // content below this many runes may be skipped
	ShortSkipChance   float64
	PerParticipantCap int // reject once a participant already has more than this many replies today
}

// DefaultGovernorConfig holds the shipped cadence defaults. The sampling
// rate deliberately skips ~75% of eligible events.
var DefaultGovernorConfig = GovernorConfig{
	DailyCap:          15,
	SamplingRate:      0.25,
	MinGap:            15 * time.Second,
	MinDelay:          30 * time.Second,
	MaxDelay:          3 * time.Minute,
	DelayCeiling:      10 * time.Minute,
	ShortContentLen:   10,
	ShortSkipChance:   0.6,
	PerParticipantCap: 2,
}

// RuntimeState is the governor's per-process mutable state, reset on local
// date change. It is injected rather than hidden in package globals so a
// shared implementation can replace it for multi-instance deployments.
type RuntimeState struct {
	mu                sync.Mutex
	date              string
	dailyCount        int
	lastResponseAt    time.Time
	participantCounts map[string]int
}

// NewRuntimeState creates empty governor state.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{participantCounts: make(map[string]int)}
}

func (s *RuntimeState) rolloverLocked(now time.Time) {
	today := now.Format("2006-01-02")
	if s.date != today {
		s.date = today
		s.dailyCount = 0
		s.participantCounts = make(map[string]int)
	}
}

// Governor decides whether and when to auto-reply, mimicking human cadence
// to avoid the platform's automation classifiers. Rejection is the common
// case and never an error.
type Governor struct {
	cfg   GovernorConfig
	state *RuntimeState

	randMu sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
}

// NewGovernor creates a governor around the given state.
func NewGovernor(cfg GovernorConfig, state *RuntimeState) *Governor {
	if state == nil {
		state = NewRuntimeState()
	}
	if cfg.DelayCeiling <= 0 {
		cfg.DelayCeiling = DefaultGovernorConfig.DelayCeiling
	}
	return &Governor{
		cfg:   cfg,
		state: state,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// SetRand replaces the random source, for deterministic tests.
func (g *Governor) SetRand(rng *rand.Rand) {
	g.randMu.Lock()
	defer g.randMu.Unlock()
	g.rng = rng
}

func (g *Governor) float() float64 {
	g.randMu.Lock()
	defer g.randMu.Unlock()
	return g.rng.Float64()
}

// ShouldRespond applies the rejection ladder and, on acceptance, records
// the response against the daily and per-participant counters.
func (g *Governor) ShouldRespond(ev *domain.WebhookEvent) (bool, string) {
	now := g.now()

	g.state.mu.Lock()
	defer g.state.mu.Unlock()
	g.state.rolloverLocked(now)

	if g.state.dailyCount >= g.cfg.DailyCap {
		return false, "daily cap reached"
	}
	if g.float() > g.cfg.SamplingRate {
		return false, "sampled out"
	}
	if !g.state.lastResponseAt.IsZero() && now.Sub(g.state.lastResponseAt) < g.cfg.MinGap {
		return false, "too soon after last response"
	}
	if utf8.RuneCountInString(ev.Content) < g.cfg.ShortContentLen && g.float() < g.cfg.ShortSkipChance {
		return false, "short content sampled out"
	}
	if g.state.participantCounts[ev.SenderID] > g.cfg.PerParticipantCap {
		return false, "participant daily cap reached"
	}

	g.state.dailyCount++
	g.state.participantCounts[ev.SenderID]++
	g.state.lastResponseAt = now
	return true, ""
}

// ResponseDelay computes the stealth delay before a scheduled send:
// rand(min,max) scaled by a content-length complexity factor and a random
// jitter, with a rare 3x spike, capped at the absolute ceiling.
func (g *Governor) ResponseDelay(content string) time.Duration {
	span := g.cfg.MaxDelay - g.cfg.MinDelay
	if span < 0 {
		span = 0
	}
	base := g.cfg.MinDelay + time.Duration(g.float()*float64(span))

	length := len(content)
	if length > 280 {
		length = 280
	}
	complexity := 1.0 + float64(length)/560.0 // up to 1.5x for long content
	jitter := 0.7 + g.float()*0.6

	delay := time.Duration(float64(base) * complexity * jitter)
	if g.float() < 0.1 {
		delay *= 3
	}
	if delay > g.cfg.DelayCeiling {
		delay = g.cfg.DelayCeiling
	}
	return delay
}

// informalSubs are casual substitutions applied during naturalization.
var informalSubs = map[string]string{
	"you":    "u",
	"your":   "ur",
	"please": "pls",
	"thanks": "thx",
	"really": "rly",
}

// Naturalize roughens a reply so output varies run to run: each transform
// is gated by its own random draw.
func (g *Governor) Naturalize(text string) string {
	if g.float() < 0.3 {
		text = strings.ToLower(text)
	}
	if g.float() < 0.25 {
		text = strings.TrimRight(text, ".!")
	}
	if g.float() < 0.2 {
		words := strings.Fields(text)
		for i, w := range words {
			if sub, ok := informalSubs[strings.ToLower(w)]; ok {
				words[i] = sub
				break
			}
		}
		text = strings.Join(words, " ")
	}
	if g.float() < 0.05 {
		text = injectTypo(text, g.intn(len(text)+1))
	}
	return text
}

func (g *Governor) intn(n int) int {
	if n <= 0 {
		return 0
	}
	g.randMu.Lock()
	defer g.randMu.Unlock()
	return g.rng.Intn(n)
}

// injectTypo swaps one adjacent ASCII letter pair near pos.
func injectTypo(text string, pos int) string {
	runes := []rune(text)
	if len(runes) < 4 {
		return text
	}
	if pos > len(runes)-2 {
		pos = len(runes) - 2
	}
	for i := pos; i < len(runes)-1; i++ {
		a, b := runes[i], runes[i+1]
		if a >= 'a' && a <= 'z' && b >= 'a' && b <= 'z' {
			runes[i], runes[i+1] = b, a
			return string(runes)
		}
	}
	return text
}
