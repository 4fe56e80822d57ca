package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Topic phrases, most specific first.
var descRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bto\s+(?:discuss|talk\s+about|review|plan)\s+(.{3,})`),
	regexp.MustCompile(`(?i)\bon\s+the\s+(?:topic|subject)\s+(?:of\s+)?(.{3,})`),
	regexp.MustCompile(`(?i)\b(?:about|regarding)\s+(.{3,})`),
	regexp.MustCompile(`(?i)(?:^|\s)re:\s*(.{3,})`),
	regexp.MustCompile(`(?i)\b(?:agenda|topic):?\s+(.{3,})`),
}

// descCutRe trims trailing schedule wording off a captured topic.
var descCutRe = regexp.MustCompile(`(?i)\s+(?:tomorrow|today|tonight|yesterday|next\s+\S+|this\s+\S+|on\s+(?:mon|tues|wednes|thurs|fri|satur|sun)day|at\s+\d|from\s+\d|between\s+\d|every\s+\S+|with\s+\S+|for\s+\d|\d{1,2}(?::\d{2})?\s*(?:am|pm)).*$`)

// extractDescription pulls the meeting topic out of the sentence. The
// first matching phrase wins; the remainder of the sentence's scheduling
// words are cut off the tail.
func extractDescription(sentence string) string {
	for _, re := range descRes {
		m := re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		desc := m[1]
		if loc := descCutRe.FindStringIndex(desc); loc != nil {
			desc = desc[:loc[0]]
		}
		desc = strings.Trim(strings.TrimSpace(desc), ".,;:!?")
		desc = strings.Join(strings.Fields(desc), " ")
		if len(desc) < 3 {
			continue
		}
		return capitalizeFirst(desc)
	}
	return ""
}

func capitalizeFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
