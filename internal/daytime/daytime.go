// Package daytime resolves natural language date and time fragments
// against a reference instant.
package daytime

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/meetwise/meetwise/internal/errors"
)

// Expression is the resolved form of a date/time fragment. Start is always
// set on success; End is set only when the fragment carried a range.
type Expression struct {
	Fragment  string    `json:"fragment"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitempty"`
	AllDay    bool      `json:"all_day"`
	Ambiguous bool      `json:"ambiguous"`
	HasDate   bool      `json:"has_date"`
	HasTime   bool      `json:"has_time"`
}

// Past reports whether the expression lands strictly before the reference
// instant (before today for all-day expressions).
func (e *Expression) Past(ref time.Time) bool {
	if e.AllDay {
		today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
		return e.Start.Before(today)
	}
	return e.Start.Before(ref)
}

// ClarificationError signals a fragment that needs the user to disambiguate,
// typically a clock time with no am/pm marker.
type ClarificationError struct {
	Prompt string
}

func (e *ClarificationError) Error() string {
	return fmt.Sprintf("clarification needed: %s", e.Prompt)
}

func (e *ClarificationError) Unwrap() error {
	return apperrors.ErrAmbiguousTime
}

// Parser resolves fragments relative to a fixed reference instant.
// It performs no I/O and never consults the wall clock.
type Parser struct {
	reference time.Time
}

// New creates a parser anchored at the given reference instant.
func New(reference time.Time) *Parser {
	return &Parser{reference: reference}
}

// Reference returns the parser's anchor instant.
func (p *Parser) Reference() time.Time {
	return p.reference
}

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)

	dayAfterTomorrowRe  = regexp.MustCompile(`\bday\s+after\s+(?:tomorrow|tmr|tmrw)\b`)
	daysAfterTomorrowRe = regexp.MustCompile(`\b(\d+)\s+days?\s+after\s+(?:tomorrow|tmr|tmrw)\b`)
	tomorrowRe          = regexp.MustCompile(`\b(?:tomorrow|tomorro|tmrw|tmr)\b`)
	todayRe             = regexp.MustCompile(`\btoday\b`)
	yesterdayRe         = regexp.MustCompile(`\byesterday\b`)

	inDaysRe    = regexp.MustCompile(`\b(?:in|after|starting\s+in)\s+(\d+)\s+days?\b`)
	inWeeksRe   = regexp.MustCompile(`\b(?:in|after)\s+(\d+)\s+weeks?\b`)
	daysFromRe  = regexp.MustCompile(`\b(\d+)\s+days?\s+(?:from\s+now|later)\b`)
	weeksFromRe = regexp.MustCompile(`\b(\d+)\s+weeks?\s+(?:from\s+now|later)\b`)

	nextWeekDayRe = regexp.MustCompile(`\bnext\s+week(?:'s)?\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	nextDayRe     = regexp.MustCompile(`\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	weekdayRe     = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	thisMonthRe = regexp.MustCompile(`\bthis\s+month\b`)
	nextMonthRe = regexp.MustCompile(`\bnext\s+month\b`)

	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?(?:\s+(\d{4}))?\b`)
	monthDayRe = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*,?\s*(\d{4}))?\b`)

	bareOrdinalRe = regexp.MustCompile(`\b(?:on\s+)?the\s+(\d{1,2})(?:st|nd|rd|th)\b`)
)

var meridiemNormalizer = strings.NewReplacer("a.m.", "am", "p.m.", "pm")

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Parse resolves a fragment into an Expression. It is a pure function of
// (fragment, reference): the same inputs always give the same output.
func (p *Parser) Parse(fragment string) (*Expression, error) {
	text := meridiemNormalizer.Replace(strings.ToLower(strings.TrimSpace(fragment)))
	if text == "" {
		return nil, apperrors.ErrUnparseableDate
	}

	expr := &Expression{Fragment: fragment}

	// Avoidance phrases ("avoid lunch time") must not be read as the
	// requested time; their meal words are stripped before the clock pass.
	avoid := avoidedMeals(text)
	clockText := text
	if len(avoid) > 0 {
		clockText = stripMealAvoidance(text)
	}

	date, dateOK, ambiguous := p.parseDate(text)
	clock, clockErr := p.parseClock(clockText)
	if clockErr != nil {
		return nil, clockErr
	}

	if len(avoid) > 0 && clock == nil {
		return nil, &ClarificationError{
			Prompt: fmt.Sprintf("You asked to avoid %s. What time should it be?", joinMeals(avoid)),
		}
	}

	if !dateOK && clock == nil {
		return nil, apperrors.ErrUnparseableDate
	}

	expr.Ambiguous = ambiguous
	loc := p.reference.Location()

	if clock == nil {
		expr.HasDate = true
		expr.AllDay = true
		expr.Start = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
		return expr, nil
	}

	expr.HasTime = true
	if !dateOK {
		date = p.reference
	} else {
		expr.HasDate = true
	}

	expr.Start = time.Date(date.Year(), date.Month(), date.Day(), clock.hour, clock.minute, 0, 0, loc)
	if clock.hasEnd {
		expr.End = time.Date(date.Year(), date.Month(), date.Day(), clock.endHour, clock.endMinute, 0, 0, loc)
		if !expr.End.After(expr.Start) {
			expr.End = expr.End.AddDate(0, 0, 1)
		}
	}

	// A bare time in the past rolls to the next day; an explicit date pins it.
	if !expr.HasDate && !expr.Start.After(p.reference) {
		expr.Start = expr.Start.AddDate(0, 0, 1)
		if clock.hasEnd {
			expr.End = expr.End.AddDate(0, 0, 1)
		}
	}

	if len(avoid) > 0 {
		if shifted := shiftOutsideMeals(expr.Start, avoid); !shifted.Equal(expr.Start) {
			if !expr.End.IsZero() {
				expr.End = expr.End.Add(shifted.Sub(expr.Start))
			}
			expr.Start = shifted
		}
	}

	return expr, nil
}

// parseDate resolves the date portion of a fragment. The ambiguous flag is
// set for numeric dates where day and month are interchangeable.
func (p *Parser) parseDate(text string) (date time.Time, ok bool, ambiguous bool) {
	ref := p.reference
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		y, mo, d := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if validDate(y, mo, d) {
			return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, ref.Location()), true, false
		}
	}

	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		if d, amb, valid := p.resolveNumericDate(m); valid {
			return d, true, amb
		}
	}

	if m := daysAfterTomorrowRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, 1+atoi(m[1])), true, false
	}
	if dayAfterTomorrowRe.MatchString(text) {
		return today.AddDate(0, 0, 2), true, false
	}
	if tomorrowRe.MatchString(text) {
		return today.AddDate(0, 0, 1), true, false
	}
	if todayRe.MatchString(text) || strings.Contains(text, "tonight") {
		return today, true, false
	}
	if yesterdayRe.MatchString(text) {
		return today.AddDate(0, 0, -1), true, false
	}

	if m := inDaysRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, atoi(m[1])), true, false
	}
	if m := daysFromRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, atoi(m[1])), true, false
	}
	if m := inWeeksRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, 7*atoi(m[1])), true, false
	}
	if m := weeksFromRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, 7*atoi(m[1])), true, false
	}

	if m := nextWeekDayRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, daysUntil(ref.Weekday(), weekdays[m[1]])+7), true, false
	}
	if m := nextDayRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, daysUntil(ref.Weekday(), weekdays[m[1]])), true, false
	}
	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		return today.AddDate(0, 0, daysUntil(ref.Weekday(), weekdays[m[1]])), true, false
	}

	if nextMonthRe.MatchString(text) {
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		return first.AddDate(0, 1, 0), true, false
	}
	if thisMonthRe.MatchString(text) {
		return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()), true, false
	}

	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		if d, valid := p.resolveNamedDate(atoi(m[1]), m[2], m[3]); valid {
			return d, true, false
		}
	}
	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		if d, valid := p.resolveNamedDate(atoi(m[2]), m[1], m[3]); valid {
			return d, true, false
		}
	}

	if m := bareOrdinalRe.FindStringSubmatch(text); m != nil {
		day := atoi(m[1])
		if day >= 1 && day <= 31 {
			candidate := time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, ref.Location())
			if candidate.Day() == day {
				if candidate.Before(today) {
					candidate = nextMonthDay(ref, day)
				}
				return candidate, true, false
			}
		}
	}

	return time.Time{}, false, false
}

// resolveNumericDate handles d/m and m/d forms. Day-first wins when both
// readings are valid; the result is flagged ambiguous in that case.
func (p *Parser) resolveNumericDate(m []string) (time.Time, bool, bool) {
	a, b := atoi(m[1]), atoi(m[2])
	year := p.reference.Year()
	explicitYear := false
	if m[3] != "" {
		year = atoi(m[3])
		if year < 100 {
			year += 2000
		}
		explicitYear = true
	}

	dayFirst := validDate(year, b, a)
	monthFirst := validDate(year, a, b)

	var day, month int
	switch {
	case dayFirst:
		day, month = a, b
	case monthFirst:
		day, month = b, a
	default:
		return time.Time{}, false, false
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.reference.Location())
	if !explicitYear {
		today := time.Date(p.reference.Year(), p.reference.Month(), p.reference.Day(), 0, 0, 0, 0, p.reference.Location())
		if date.Before(today) {
			date = date.AddDate(1, 0, 0)
		}
	}

	ambiguous := dayFirst && monthFirst && a != b && a <= 12 && b <= 12
	return date, ambiguous, true
}

// resolveNamedDate handles day + month-name forms. Without an explicit year,
// a date that already passed rolls to next year.
func (p *Parser) resolveNamedDate(day int, month string, yearStr string) (time.Time, bool) {
	mo, known := monthNames[month]
	if !known {
		return time.Time{}, false
	}

	ref := p.reference
	year := ref.Year()
	explicitYear := false
	if yearStr != "" {
		year = atoi(yearStr)
		explicitYear = true
	}

	if !validDate(year, int(mo), day) {
		return time.Time{}, false
	}

	date := time.Date(year, mo, day, 0, 0, 0, 0, ref.Location())
	if !explicitYear {
		today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
		if date.Before(today) {
			date = date.AddDate(1, 0, 0)
		}
	}
	return date, true
}

// daysUntil returns the day count to the next future occurrence of target.
// Same-day never counts: asking for Friday on a Friday means next week.
func daysUntil(from, target time.Weekday) int {
	days := (int(target) - int(from) + 7) % 7
	if days == 0 {
		days = 7
	}
	return days
}

func nextMonthDay(ref time.Time, day int) time.Time {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, 1, 0)
	candidate := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, ref.Location())
	if candidate.Day() != day {
		// Day overflows the month (e.g. the 31st); clamp to its last day.
		candidate = first.AddDate(0, 1, -1)
	}
	return candidate
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return int(d.Month()) == month && d.Day() == day
}

func atoi(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
