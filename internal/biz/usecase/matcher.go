package usecase

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/domain"
)

// RuleMatcher selects at most one automation rule per event. Gates run in a
// fixed order: rule type, schedule, trigger, exclusion keywords, daily cap.
// The first surviving rule (by position) wins; later matches are logged but
// never produce a reply.
//
// Daily trigger counts are process-local and reset at local midnight.
type RuleMatcher struct {
	mu     sync.Mutex
	date   string
	counts map[string]int

	now func() time.Time
}

// NewRuleMatcher creates a rule matcher.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Match evaluates the rules in order and returns the selected rule, or nil
// when no rule survives all gates.
func (m *RuleMatcher) Match(ev *domain.WebhookEvent, rules []*domain.AutomationRule) *domain.AutomationRule {
	var selected *domain.AutomationRule
	now := m.now()

	for _, rule := range rules {
		if !rule.Active || !rule.AppliesTo(ev) {
			continue
		}
		if !rule.Conditions.Schedule.Allows(now) {
			continue
		}
		if !rule.Trigger.Matches(ev) {
			continue
		}
		if rule.Excludes(ev.Content) {
			continue
		}
		if cap := rule.Conditions.MaxPerDay; cap > 0 && m.CountToday(rule.ID) >= cap {
			log.Debug().Str("rule", rule.ID).Int("cap", cap).Msg("rule skipped, daily cap reached")
			continue
		}

		log.Info().Str("rule", rule.ID).Str("event", ev.ExternalID).Msg("rule matched")
		if selected == nil {
			selected = rule
		}
	}
	return selected
}

// CountToday returns the rule's trigger count for the current local day.
func (m *RuleMatcher) CountToday(ruleID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	return m.counts[ruleID]
}

// RecordTrigger bumps the rule's daily counter. Called once per event the
// engine commits to replying to, so the counter is monotonic within a day.
func (m *RuleMatcher) RecordTrigger(ruleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	m.counts[ruleID]++
}

func (m *RuleMatcher) rolloverLocked() {
	today := m.now().Format("2006-01-02")
	if m.date != today {
		m.date = today
		m.counts = make(map[string]int)
	}
}
