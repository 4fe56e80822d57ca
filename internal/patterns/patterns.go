// Package patterns holds the tagged phrase rules that drive extraction.
// Rules are explicit ordered data, not code: each pattern carries the role
// it fills and the value it yields, and conflicts resolve by priority then
// declaration order.
package patterns

import (
	"encoding/json"
	"os"
	"regexp"

	apperrors "github.com/meetwise/meetwise/internal/errors"
)

// Role names the extraction slot a pattern fills.
type Role string

const (
	RoleAction     Role = "action"
	RoleIntent     Role = "intent"
	RoleDuration   Role = "duration"
	RoleMode       Role = "mode"
	RoleRecurrence Role = "recurrence"
)

// Pattern is one tagged rule. Expr is a regular expression matched against
// the lowercased utterance; Value is what a match contributes.
type Pattern struct {
	Role     Role   `json:"role"`
	Expr     string `json:"expr"`
	Value    string `json:"value"`
	Priority int    `json:"priority"`

	re *regexp.Regexp
}

// Matches reports whether the pattern fires on the given text.
func (p *Pattern) Matches(text string) bool {
	if p.re == nil {
		p.re = regexp.MustCompile(p.Expr)
	}
	return p.re.MatchString(text)
}

// Set is an ordered collection of patterns.
type Set struct {
	patterns []Pattern
}

// NewSet builds a set from patterns, validating every expression.
func NewSet(patterns []Pattern) (*Set, error) {
	for i := range patterns {
		re, err := regexp.Compile(patterns[i].Expr)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrPatternsInvalid.Code, "compiling pattern "+patterns[i].Expr)
		}
		patterns[i].re = re
	}
	return &Set{patterns: patterns}, nil
}

// Match returns the winning pattern for a role: highest priority first,
// declaration order breaking ties.
func (s *Set) Match(role Role, text string) (*Pattern, bool) {
	var best *Pattern
	for i := range s.patterns {
		p := &s.patterns[i]
		if p.Role != role || !p.Matches(text) {
			continue
		}
		if best == nil || p.Priority > best.Priority {
			best = p
		}
	}
	return best, best != nil
}

// ForRole returns the patterns for one role in declaration order.
func (s *Set) ForRole(role Role) []Pattern {
	var out []Pattern
	for _, p := range s.patterns {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the total number of patterns.
func (s *Set) Len() int {
	return len(s.patterns)
}

type patternsFile struct {
	Version  int       `json:"version"`
	Patterns []Pattern `json:"patterns"`
}

// Load reads a pattern set from a JSON file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.ErrPatternsNotFound.Code, "pattern file not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrPatternsInvalid.Code, "reading pattern file")
	}

	var file patternsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrPatternsInvalid.Code, "parsing pattern file")
	}
	return NewSet(file.Patterns)
}

// LoadOrDefaults reads a pattern set, falling back to the built-in defaults
// when the file does not exist.
func LoadOrDefaults(path string) (*Set, error) {
	s, err := Load(path)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrPatternsNotFound.Code {
			return Defaults(), nil
		}
		return nil, err
	}
	return s, nil
}

// Save writes the set to a JSON file.
func (s *Set) Save(path string) error {
	data, err := json.MarshalIndent(patternsFile{Version: 1, Patterns: s.patterns}, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrPatternsInvalid.Code, "encoding pattern file")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "writing pattern file")
	}
	return nil
}

// Defaults returns the built-in pattern set. Ordering within a role is most
// specific first; priorities keep destructive actions ahead of create.
func Defaults() *Set {
	s, err := NewSet([]Pattern{
		{Role: RoleAction, Expr: `\b(cancel|delete|remove|drop|scrap|call\s+off)\b`, Value: "cancel", Priority: 40},
		{Role: RoleAction, Expr: `\b(reschedule|move|shift|push(\s+back)?|postpone|bring\s+forward)\b`, Value: "reschedule", Priority: 30},
		{Role: RoleAction, Expr: `\b(update|change|modify|rename|edit)\b`, Value: "update", Priority: 20},
		{Role: RoleAction, Expr: `\b(list|show|what\s+meetings|what'?s\s+on|agenda)\b`, Value: "list", Priority: 10},
		{Role: RoleAction, Expr: `\b(schedule|set\s+up|book|arrange|plan|create|meeting|meet|call|sync|catch\s*-?\s*up)\b`, Value: "create", Priority: 0},

		{Role: RoleIntent, Expr: `\b(cancel|delete|remove)\b`, Value: "cancel_meeting", Priority: 40},
		{Role: RoleIntent, Expr: `\b(reschedule|move|shift|push(\s+back)?|postpone|bring\s+forward|advance)\b`, Value: "reschedule_meeting", Priority: 30},
		{Role: RoleIntent, Expr: `\b(update|change|modify|edit)\b`, Value: "update_meeting", Priority: 20},
		{Role: RoleIntent, Expr: `\b(list|show|what'?s\s+on|agenda)\b`, Value: "list_events", Priority: 10},
		{Role: RoleIntent, Expr: `\b(schedule|set\s+(?:up|a)|book|fix|arrange|create|plan|block|put\s+a|add\s+a)\b`, Value: "schedule_meeting", Priority: 0},

		{Role: RoleDuration, Expr: `\b(quick|brief|short)\b`, Value: "15", Priority: 10},
		{Role: RoleDuration, Expr: `\bhalf\s+(an\s+)?hour\b`, Value: "30", Priority: 10},
		{Role: RoleDuration, Expr: `\b(long|extended|deep\s+dive)\b`, Value: "60", Priority: 5},

		{Role: RoleMode, Expr: `\b(google\s+meet|gmeet|zoom|teams\s+call|online|virtual|video\s+call)\b`, Value: "online", Priority: 10},
		{Role: RoleMode, Expr: `\b(boardroom|conference\s+room|meeting\s+room|office|in\s+person|onsite|on-site)\b`, Value: "offline", Priority: 10},

		{Role: RoleRecurrence, Expr: `\b(every\s+day|daily)\b`, Value: "RRULE:FREQ=DAILY", Priority: 10},
		{Role: RoleRecurrence, Expr: `\bevery\s+monday\b`, Value: "RRULE:FREQ=WEEKLY;BYDAY=MO", Priority: 10},
		{Role: RoleRecurrence, Expr: `\bevery\s+tuesday\b`, Value: "RRULE:FREQ=WEEKLY;BYDAY=TU", Priority: 10},
		{Role: RoleRecurrence, Expr: `\bevery\s+wednesday\b`, Value: "RRULE:FREQ=WEEKLY;BYDAY=WE", Priority: 10},
		{Role: RoleRecurrence, Expr: `\bevery\s+thursday\b`, Value: "RRULE:FREQ=WEEKLY;BYDAY=TH", Priority: 10},
		{Role: RoleRecurrence, Expr: `\bevery\s+friday\b`, Value: "RRULE:FREQ=WEEKLY;BYDAY=FR", Priority: 10},
		{Role: RoleRecurrence, Expr: `\b(every\s+week|weekly)\b`, Value: "RRULE:FREQ=WEEKLY", Priority: 5},
		{Role: RoleRecurrence, Expr: `\b(every\s+month|monthly)\b`, Value: "RRULE:FREQ=MONTHLY", Priority: 5},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// Merge appends learned patterns after the base set. Base patterns keep
// precedence at equal priority.
func Merge(base, learned *Set) *Set {
	merged := make([]Pattern, 0, len(base.patterns)+len(learned.patterns))
	merged = append(merged, base.patterns...)
	for _, p := range learned.patterns {
		if !containsPattern(merged, p) {
			merged = append(merged, p)
		}
	}
	return &Set{patterns: merged}
}

func containsPattern(patterns []Pattern, p Pattern) bool {
	for _, existing := range patterns {
		if existing.Role == p.Role && existing.Expr == p.Expr && existing.Value == p.Value {
			return true
		}
	}
	return false
}
