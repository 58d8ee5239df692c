package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/domain"
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

type ruleRepo struct {
	db *sql.DB
}

// NewRuleRepo creates the sqlite-backed automation-rule repository.
func NewRuleRepo(store *Store) repo.RuleRepo {
	return &ruleRepo{db: store.db}
}

func (r *ruleRepo) ListActive(ctx context.Context, workspaceID string) ([]*domain.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, type, trigger_kind, keywords, hashtags, mention_flag,
		       always_on_ai, responses, delay_seconds, max_per_day, exclude_keywords,
		       timezone, active_days, active_start, active_end, active, position
		FROM rules
		WHERE workspace_id = ? AND active = 1
		ORDER BY position ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []*domain.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return out, nil
}

func scanRule(rows *sql.Rows) (*domain.AutomationRule, error) {
	var rule domain.AutomationRule
	var ruleType, triggerKind, keywords, hashtags, responses, excludes, activeDays string
	var mentionFlag, alwaysOnAI, active int
	err := rows.Scan(&rule.ID, &rule.WorkspaceID, &ruleType, &triggerKind, &keywords,
		&hashtags, &mentionFlag, &alwaysOnAI, &responses, &rule.Conditions.DelaySeconds,
		&rule.Conditions.MaxPerDay, &excludes, &rule.Conditions.Schedule.Timezone,
		&activeDays, &rule.Conditions.Schedule.StartTime, &rule.Conditions.Schedule.EndTime,
		&active, &rule.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.Type = domain.RuleType(ruleType)
	rule.Trigger = normalizeTrigger(triggerKind, decodeStrings(keywords), decodeStrings(hashtags),
		mentionFlag == 1, alwaysOnAI == 1)
	rule.Responses = decodeStrings(responses)
	rule.Conditions.ExcludeKeywords = decodeStrings(excludes)
	rule.Conditions.Schedule.ActiveDays = decodeWeekdays(activeDays)
	rule.Active = active == 1
	return &rule, nil
}

// normalizeTrigger collapses the stored flag combinations into the tagged
// trigger union. An explicit trigger_kind wins; otherwise flags decide in
// priority order and keyword is the final default.
func normalizeTrigger(kind string, keywords, hashtags []string, mention, alwaysOnAI bool) domain.Trigger {
	t := domain.Trigger{Keywords: keywords, Hashtags: hashtags}
	switch domain.TriggerKind(kind) {
	case domain.TriggerKeyword, domain.TriggerHashtag, domain.TriggerMention, domain.TriggerAlwaysOnAI:
		t.Kind = domain.TriggerKind(kind)
		return t
	}
	switch {
	case alwaysOnAI:
		t.Kind = domain.TriggerAlwaysOnAI
	case mention:
		t.Kind = domain.TriggerMention
	case len(hashtags) > 0 && len(keywords) == 0:
		t.Kind = domain.TriggerHashtag
	default:
		t.Kind = domain.TriggerKeyword
	}
	return t
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func decodeWeekdays(v string) []time.Weekday {
	names := decodeStrings(v)
	if len(names) == 0 {
		return nil
	}
	var days []time.Weekday
	for _, n := range names {
		if d, ok := weekdayNames[n]; ok {
			days = append(days, d)
		}
	}
	return days
}
