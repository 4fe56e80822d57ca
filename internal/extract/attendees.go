package extract

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	withRe  = regexp.MustCompile(`(?i)\b(?:with|w/)\s+`)
)

var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true, "prof": true,
}

// attendeeStopwords end the name span after a "with" cue. Anything temporal
// or prepositional means the names are over.
var attendeeStopwords = map[string]bool{
	"on": true, "at": true, "in": true, "from": true, "for": true, "by": true,
	"about": true, "to": true, "regarding": true, "re": true, "via": true,
	"over": true, "during": true, "after": true, "before": true, "between": true,
	"tomorrow": true, "tmr": true, "tmrw": true, "today": true, "tonight": true,
	"yesterday": true, "next": true, "this": true, "every": true,
	"daily": true, "weekly": true, "monthly": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"morning": true, "afternoon": true, "evening": true, "night": true,
	"noon": true, "midnight": true, "am": true, "pm": true,
	"meeting": true, "call": true, "sync": true, "standup": true, "lunch": true,
	"dinner": true, "breakfast": true,
}

// attendeeExclusions are words that look like names in a "with" span but
// never are.
var attendeeExclusions = map[string]bool{
	"me": true, "us": true, "you": true, "him": true, "her": true, "them": true,
	"everyone": true, "everybody": true, "all": true, "the": true, "my": true,
	"our": true, "a": true, "an": true, "guys": true, "folks": true,
}

// extractAttendees finds attendee candidates in a sentence and resolves
// them against the directory. Literal email addresses pass through; team
// names expand to their members; names missing from the directory are
// returned as unknowns with their original spelling, never dropped and
// never given an invented address.
func (e *Extractor) extractAttendees(sentence string) (resolved, unknown []string) {
	resolved = []string{}
	seen := map[string]bool{}

	add := func(email string) {
		key := strings.ToLower(email)
		if !seen[key] {
			seen[key] = true
			resolved = append(resolved, email)
		}
	}

	for _, email := range emailRe.FindAllString(sentence, -1) {
		add(email)
	}

	for _, name := range e.nameCandidates(sentence) {
		if strings.Contains(name, "@") {
			continue
		}
		if members, ok := e.lookupTeam(name); ok {
			for _, email := range members {
				add(email)
			}
			continue
		}
		if email, ok := e.ctx.directory.Resolve(name); ok {
			add(email)
			continue
		}
		unknown = append(unknown, name)
	}
	return resolved, unknown
}

// lookupTeam tries the candidate as a team name, with and without a
// trailing "team" word ("platform team" matches the "platform" team).
func (e *Extractor) lookupTeam(name string) ([]string, bool) {
	if members, ok := e.ctx.directory.Team(name); ok {
		return members, true
	}
	lower := strings.ToLower(name)
	if base := strings.TrimSuffix(lower, " team"); base != lower {
		return e.ctx.directory.Team(base)
	}
	return nil, false
}

// nameCandidates pulls the raw names out of the "with <names>" span,
// honouring and/&/,/+ separators and stripping honorifics.
func (e *Extractor) nameCandidates(sentence string) []string {
	loc := withRe.FindStringIndex(sentence)
	if loc == nil {
		return nil
	}
	tail := sentence[loc[1]:]

	var candidates []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			candidates = append(candidates, strings.Join(current, " "))
			current = nil
		}
	}

	for _, token := range strings.Fields(tail) {
		trailing := strings.HasSuffix(token, ",")
		word := strings.Trim(token, ".,!?;:")
		lower := strings.ToLower(word)

		switch {
		case word == "":
			continue
		case containsDigit(lower) || attendeeStopwords[lower]:
			flush()
			return cleanCandidates(candidates)
		case lower == "and" || word == "&" || word == "+":
			flush()
			continue
		}

		current = append(current, word)
		if trailing {
			flush()
		}
	}
	flush()
	return cleanCandidates(candidates)
}

func cleanCandidates(raw []string) []string {
	var out []string
	for _, name := range raw {
		words := strings.Fields(name)
		for len(words) > 0 && honorifics[strings.ToLower(strings.TrimSuffix(words[0], "."))] {
			words = words[1:]
		}
		var kept []string
		for _, w := range words {
			if !attendeeExclusions[strings.ToLower(w)] {
				kept = append(kept, w)
			}
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, " "))
		}
	}
	return out
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
