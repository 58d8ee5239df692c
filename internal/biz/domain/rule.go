package domain

import (
	"strings"
	"time"
)

// RuleType restricts which event kinds a rule applies to.
type RuleType string

const (
	RuleTypeComment RuleType = "comment"
	RuleTypeDM      RuleType = "dm"
)

// TriggerKind is the normalized trigger discriminator. Rule rows are loaded
// into exactly one kind; call sites never re-inspect raw flag combinations.
type TriggerKind string

const (
	TriggerKeyword    TriggerKind = "keyword"
	TriggerHashtag    TriggerKind = "hashtag"
	TriggerMention    TriggerKind = "mention"
	TriggerAlwaysOnAI TriggerKind = "always_on_ai"
)

// Trigger describes what fires a rule.
type Trigger struct {
	Kind     TriggerKind
	Keywords []string
	Hashtags []string
}

// Matches reports whether the trigger fires for the event.
func (t Trigger) Matches(ev *WebhookEvent) bool {
	switch t.Kind {
	case TriggerAlwaysOnAI:
		return true
	case TriggerMention:
		return ev.Kind == EventMention
	default:
		content := strings.ToLower(ev.Content)
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(content, strings.ToLower(kw)) {
				return true
			}
		}
		for _, tag := range t.Hashtags {
			tag = strings.TrimPrefix(strings.ToLower(tag), "#")
			if tag != "" && strings.Contains(content, "#"+tag) {
				return true
			}
		}
		return false
	}
}

// Schedule restricts when a rule is active, evaluated in the rule's own
// timezone. A zero Schedule allows everything.
type Schedule struct {
	Timezone   string
	ActiveDays []time.Weekday
	StartTime  string // "09:00"
	EndTime    string // "18:00"
}

// IsZero reports whether the schedule has no restrictions configured.
func (s Schedule) IsZero() bool {
	return len(s.ActiveDays) == 0 && s.StartTime == "" && s.EndTime == ""
}

// Allows reports whether the given instant falls inside the schedule window.
func (s Schedule) Allows(at time.Time) bool {
	if s.IsZero() {
		return true
	}

	loc := time.UTC
	if s.Timezone != "" {
		if l, err := time.LoadLocation(s.Timezone); err == nil {
			loc = l
		}
	}
	local := at.In(loc)

	if len(s.ActiveDays) > 0 {
		found := false
		for _, d := range s.ActiveDays {
			if local.Weekday() == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	minute := local.Hour()*60 + local.Minute()
	if s.StartTime != "" {
		if start, ok := parseClock(s.StartTime); ok && minute < start {
			return false
		}
	}
	if s.EndTime != "" {
		if end, ok := parseClock(s.EndTime); ok && minute > end {
			return false
		}
	}
	return true
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(v string) (int, bool) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// RuleConditions are the side constraints applied after a trigger fires.
type RuleConditions struct {
	DelaySeconds    int
	MaxPerDay       int // 0 = unlimited
	ExcludeKeywords []string
	Schedule        Schedule
}

// AutomationRule is a workspace-configured trigger->response policy.
// Rules are owned and edited externally; this engine only reads them.
type AutomationRule struct {
	ID          string
	WorkspaceID string
	Type        RuleType
	Trigger     Trigger
	Responses   []string
	Conditions  RuleConditions
	Active      bool
	Position    int // evaluation order within the workspace
}

// AppliesTo reports whether the rule's type covers the event kind.
// Mentions are comment activity on the platform.
func (r *AutomationRule) AppliesTo(ev *WebhookEvent) bool {
	switch r.Type {
	case RuleTypeComment:
		return ev.Kind == EventComment || ev.Kind == EventMention
	case RuleTypeDM:
		return ev.Kind == EventDM
	}
	return false
}

// Excludes reports whether any exclude keyword appears in the content.
func (r *AutomationRule) Excludes(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range r.Conditions.ExcludeKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
