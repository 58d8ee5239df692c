package usecase

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

func alwaysOnConfig() GovernorConfig {
	return GovernorConfig{
		DailyCap:          15,
		SamplingRate:      1.0,
		MinGap:            0,
		MinDelay:          0,
		MaxDelay:          0,
		DelayCeiling:      10 * time.Minute,
		ShortContentLen:   0,
		ShortSkipChance:   0,
		PerParticipantCap: 100,
	}
}

func TestGovernorAcceptsWithFullSampling(t *testing.T) {
	g := NewGovernor(alwaysOnConfig(), NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))

	ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "long enough content"})
	if !ok {
		t.Fatalf("rejected with full sampling: %s", reason)
	}
}

func TestGovernorDailyCap(t *testing.T) {
	cfg := alwaysOnConfig()
	cfg.DailyCap = 2
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))

	for i := 0; i < 2; i++ {
		if ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"}); !ok {
			t.Fatalf("accept %d rejected: %s", i, reason)
		}
	}
	ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u2", Content: "hello there"})
	if ok || reason != "daily cap reached" {
		t.Fatalf("got ok=%v reason=%q, want daily cap rejection", ok, reason)
	}
}

func TestGovernorMinGap(t *testing.T) {
	cfg := alwaysOnConfig()
	cfg.MinGap = time.Hour
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))

	if ok, _ := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"}); !ok {
		t.Fatal("first accept rejected")
	}
	ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u2", Content: "hello there"})
	if ok || reason != "too soon after last response" {
		t.Fatalf("got ok=%v reason=%q, want min gap rejection", ok, reason)
	}
}

func TestGovernorPerParticipantCap(t *testing.T) {
	cfg := alwaysOnConfig()
	cfg.PerParticipantCap = 2
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))

	// A participant gets up to cap+1 replies: rejection starts once they
	// already have more than the cap.
	for i := 0; i < 3; i++ {
		if ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"}); !ok {
			t.Fatalf("reply %d rejected: %s", i+1, reason)
		}
	}
	ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello again"})
	if ok || reason != "participant daily cap reached" {
		t.Fatalf("got ok=%v reason=%q, want participant cap rejection", ok, reason)
	}
	// Another participant is still fine.
	if ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u2", Content: "hello there"}); !ok {
		t.Fatalf("other participant rejected: %s", reason)
	}
}

func TestGovernorShortContentCountsRunes(t *testing.T) {
	cfg := alwaysOnConfig()
	cfg.ShortContentLen = 10
	cfg.ShortSkipChance = 1.0
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))

	// Four Devanagari characters are twelve bytes but still short content.
	ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "नमस्"})
	if ok || reason != "short content sampled out" {
		t.Fatalf("got ok=%v reason=%q, want short content rejection", ok, reason)
	}
	if ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "यह बहुत सुंदर है!"}); !ok {
		t.Fatalf("long devanagari content rejected: %s", reason)
	}
}

func TestGovernorSamplingZeroRejects(t *testing.T) {
	cfg := alwaysOnConfig()
	cfg.SamplingRate = 0
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))

	ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"})
	if ok || reason != "sampled out" {
		t.Fatalf("got ok=%v reason=%q, want sampling rejection", ok, reason)
	}
}

func TestGovernorDateRollover(t *testing.T) {
	cfg := alwaysOnConfig()
	cfg.DailyCap = 1
	current := time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC)
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(1)))
	g.now = func() time.Time { return current }

	if ok, _ := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"}); !ok {
		t.Fatal("first accept rejected")
	}
	if ok, _ := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"}); ok {
		t.Fatal("expected cap rejection before rollover")
	}

	current = current.Add(2 * time.Hour) // next day
	if ok, reason := g.ShouldRespond(&domain.WebhookEvent{SenderID: "u1", Content: "hello there"}); !ok {
		t.Fatalf("rejected after rollover: %s", reason)
	}
}

func TestResponseDelayBounds(t *testing.T) {
	cfg := DefaultGovernorConfig
	g := NewGovernor(cfg, NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(42)))

	for i := 0; i < 200; i++ {
		d := g.ResponseDelay("a fairly ordinary comment about the product")
		if d < 0 || d > cfg.DelayCeiling {
			t.Fatalf("delay %v outside [0, %v]", d, cfg.DelayCeiling)
		}
	}
}

func TestNaturalizeNeverEmpties(t *testing.T) {
	g := NewGovernor(alwaysOnConfig(), NewRuntimeState())
	g.SetRand(rand.New(rand.NewSource(7)))

	sawLower := false
	for i := 0; i < 200; i++ {
		out := g.Naturalize("Thanks! Please DM You.")
		if out == "" {
			t.Fatal("naturalized text is empty")
		}
		if out == strings.ToLower(out) {
			sawLower = true
		}
	}
	if !sawLower {
		t.Error("lowercase transform never fired in 200 draws")
	}
}

func TestInjectTypoSwapsAdjacentLetters(t *testing.T) {
	out := injectTypo("hello", 1)
	if out == "hello" {
		t.Fatal("expected a swap")
	}
	if len(out) != len("hello") {
		t.Fatalf("length changed: %q", out)
	}
}
