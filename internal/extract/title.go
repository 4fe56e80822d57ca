package extract

import (
	"regexp"
	"strings"
)

var aboutRe = regexp.MustCompile(`(?i)\babout\s+(.+)$`)

// meetingTypes maps utterance words to a canonical title word. Checked in
// order so specific types win over the generic "meeting".
var meetingTypes = []struct {
	re    *regexp.Regexp
	title string
}{
	{regexp.MustCompile(`\bstand-?up\b`), "Standup"},
	{regexp.MustCompile(`\bretro(?:spective)?\b`), "Retro"},
	{regexp.MustCompile(`\b(?:1:1|1-1|one[- ]on[- ]one)\b`), "1:1"},
	{regexp.MustCompile(`\ball[- ]hands\b`), "All Hands"},
	{regexp.MustCompile(`\bkick-?off\b`), "Kickoff"},
	{regexp.MustCompile(`\bplanning\b`), "Planning"},
	{regexp.MustCompile(`\breview\b`), "Review"},
	{regexp.MustCompile(`\binterview\b`), "Interview"},
	{regexp.MustCompile(`\bdemo\b`), "Demo"},
	{regexp.MustCompile(`\bcatch[- ]?up\b`), "Catch-up"},
	{regexp.MustCompile(`\bsync\b`), "Sync"},
	{regexp.MustCompile(`\bcoffee\b`), "Coffee"},
	{regexp.MustCompile(`\blunch\b`), "Lunch"},
	{regexp.MustCompile(`\bdinner\b`), "Dinner"},
	{regexp.MustCompile(`\bcall\b`), "Call"},
	{regexp.MustCompile(`\bmeeting\b`), "Meeting"},
}

// extractTitle derives an event title from what remains of the sentence
// once action, attendee and date spans are accounted for. Update-style
// sentences return an empty title so the existing one is kept.
func (e *Extractor) extractTitle(sentence string, action Action) string {
	if action == ActionUpdate || action == ActionReschedule {
		return ""
	}

	text := strings.ToLower(sentence)
	typeSpan := text
	if loc := aboutRe.FindStringIndex(text); loc != nil {
		typeSpan = text[:loc[0]]
	}

	kind := "Meeting"
	for _, mt := range meetingTypes {
		if mt.re.MatchString(typeSpan) {
			kind = mt.title
			break
		}
	}

	if topic := e.aboutTopic(sentence); topic != "" {
		return kind + " about " + topic
	}

	if names := e.nameCandidates(sentence); len(names) > 0 {
		return kind + " with " + joinNames(names)
	}

	return kind
}

// aboutTopic captures the "about <topic>" span, cut short at the first
// temporal word.
func (e *Extractor) aboutTopic(sentence string) string {
	m := aboutRe.FindStringSubmatch(sentence)
	if m == nil {
		return ""
	}

	var kept []string
	for _, token := range strings.Fields(m[1]) {
		word := strings.Trim(token, ".,!?;:")
		lower := strings.ToLower(word)
		if word == "" || containsDigit(lower) || attendeeStopwords[lower] {
			break
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
