package daytime

import (
	"fmt"
	"regexp"
)

// clockResult is the parsed clock portion of a fragment.
type clockResult struct {
	hour      int
	minute    int
	hasEnd    bool
	endHour   int
	endMinute int
}

var (
	betweenRe = regexp.MustCompile(`\b(?:from|between)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:-|–|to|until|till|and)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	dashRangeRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:-|–|to|until|till)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	// Ranges with no meridiem on either side need clarification.
	bareRangeRe = regexp.MustCompile(`\b(?:from|between)\s+(\d{1,2})(?::(\d{2}))?\s*(?:-|–|to|until|till|and)\s*(\d{1,2})(?::(\d{2}))?\b`)

	meridiemRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	colonRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	bareAtRe   = regexp.MustCompile(`\bat\s+(\d{1,2})(?::(\d{2}))?\b`)
)

// wordTimes maps informal time words to a default hour. Order matters:
// phrases must come before any phrase they contain ("afternoon" before
// "noon", "tonight" before "night").
var wordTimes = []struct {
	re     *regexp.Regexp
	hour   int
	minute int
}{
	{regexp.MustCompile(`\bearly\s+morning\b`), 6, 0},
	{regexp.MustCompile(`\blate\s+night\b`), 22, 0},
	{regexp.MustCompile(`\btonight\b`), 18, 0},
	{regexp.MustCompile(`\bmidnight\b`), 0, 0},
	{regexp.MustCompile(`\bafternoon\b`), 14, 0},
	{regexp.MustCompile(`\b(?:noon|midday)\b`), 12, 0},
	{regexp.MustCompile(`\bmorning\b`), 9, 0},
	{regexp.MustCompile(`\bevening\b`), 18, 0},
	{regexp.MustCompile(`\bnight\b`), 20, 0},
	{regexp.MustCompile(`\bbreakfast\b`), 8, 0},
	{regexp.MustCompile(`\bbrunch\b`), 11, 0},
	{regexp.MustCompile(`\blunch\b`), 13, 0},
	{regexp.MustCompile(`\bdinner\b`), 19, 0},
	{regexp.MustCompile(`\b(?:eod|cob|end\s+of\s+day|close\s+of\s+business)\b`), 17, 0},
}

// parseClock extracts the time-of-day portion of a fragment. A nil result
// with a nil error means the fragment has no recognizable clock time.
func (p *Parser) parseClock(text string) (*clockResult, error) {
	if m := betweenRe.FindStringSubmatch(text); m != nil {
		return resolveRange(m), nil
	}
	if m := dashRangeRe.FindStringSubmatch(text); m != nil {
		return resolveRange(m), nil
	}
	if m := bareRangeRe.FindStringSubmatch(text); m != nil {
		sh, eh := atoi(m[1]), atoi(m[3])
		if sh <= 12 && eh <= 12 {
			return nil, &ClarificationError{
				Prompt: fmt.Sprintf("Did you mean %d to %d in the morning or the afternoon?", sh, eh),
			}
		}
		return &clockResult{
			hour: sh, minute: atoi(m[2]),
			hasEnd:  true,
			endHour: eh, endMinute: atoi(m[4]),
		}, nil
	}

	if m := meridiemRe.FindStringSubmatch(text); m != nil {
		h := applyMeridiem(atoi(m[1]), m[3])
		return &clockResult{hour: h, minute: atoi(m[2])}, nil
	}

	if m := colonRe.FindStringSubmatch(text); m != nil {
		h, min := atoi(m[1]), atoi(m[2])
		if h >= 13 && h <= 23 || h == 0 {
			return &clockResult{hour: h, minute: min}, nil
		}
		return nil, &ClarificationError{
			Prompt: fmt.Sprintf("Did you mean %d:%02d AM or PM?", h, min),
		}
	}

	for _, w := range wordTimes {
		if w.re.MatchString(text) {
			return &clockResult{hour: w.hour, minute: w.minute}, nil
		}
	}

	if m := bareAtRe.FindStringSubmatch(text); m != nil {
		h := atoi(m[1])
		switch {
		case h >= 13 && h <= 24:
			return &clockResult{hour: h % 24, minute: atoi(m[2])}, nil
		case h >= 1:
			return nil, &ClarificationError{
				Prompt: fmt.Sprintf("Did you mean %d AM or %d PM?", h, h),
			}
		}
	}

	return nil, nil
}

// resolveRange handles "2-5pm", "from 4 to 5pm", "between 9 and 11am".
// A side with no meridiem inherits from the other; if that puts the start
// after the end, the start flips to the opposite half of the day.
func resolveRange(m []string) *clockResult {
	sh, sm := atoi(m[1]), atoi(m[2])
	eh, em := atoi(m[4]), atoi(m[5])
	smer, emer := m[3], m[6]

	if smer == "" {
		smer = emer
	}

	start := applyMeridiem(sh, smer)
	end := applyMeridiem(eh, emer)

	if start >= end && m[3] == "" {
		if smer == "pm" {
			start = applyMeridiem(sh, "am")
		} else {
			start = applyMeridiem(sh, "pm")
		}
	}

	return &clockResult{
		hour: start, minute: sm,
		hasEnd:  true,
		endHour: end, endMinute: em,
	}
}

func applyMeridiem(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}
