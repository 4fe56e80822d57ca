package calendar

import (
	"strings"
	"time"

	"github.com/meetwise/meetwise/internal/directory"
	"github.com/meetwise/meetwise/internal/extract"
)

// MatchWindowDays bounds how far a cancel/update utterance can reach.
const MatchWindowDays = 60

// Matcher finds the stored event an utterance refers to. Signals are
// weighted: a name hit in the event title's "with" portion outranks an
// attendee match, which outranks a bare date match.
type Matcher struct {
	dir *directory.Directory
}

// NewMatcher creates a matcher backed by the name directory.
func NewMatcher(dir *directory.Directory) *Matcher {
	if dir == nil {
		dir = directory.Empty()
	}
	return &Matcher{dir: dir}
}

const (
	scoreTitleName  = 50
	scoreExactStart = 40
	scoreAttendee   = 30
	scoreNameHit    = 20
	scoreSameDay    = 10
)

// FindMatch scores candidate events against the request and returns the
// best one. A request with a clock time must land on an event at that
// time; date-only requests accept any event that day.
func (m *Matcher) FindMatch(events []Event, req *extract.MeetingRequest) (*Event, bool) {
	var best *Event
	bestScore := 0

	for i := range events {
		event := &events[i]
		if event.Status == EventStatusCancelled {
			continue
		}
		score := m.score(event, req)
		if score > bestScore || (score == bestScore && best != nil && event.StartTime.Before(best.StartTime)) {
			if score > 0 {
				best = event
				bestScore = score
			}
		}
	}
	return best, best != nil
}

func (m *Matcher) score(event *Event, req *extract.MeetingRequest) int {
	score := 0

	sameDay := sameDate(event.StartTime, req.Start)
	exactStart := !req.AllDay && event.StartTime.Equal(req.Start)

	// A reschedule carries the NEW time, so the request's start says
	// nothing about which event is meant.
	if req.Action != extract.ActionReschedule {
		// A request that names a clock time must not grab a meeting at
		// a different hour that day.
		if !req.AllDay && !req.Start.IsZero() && sameDay && !exactStart {
			return 0
		}
		if !sameDay && !req.Start.IsZero() {
			return 0
		}

		if exactStart {
			score += scoreExactStart
		} else if sameDay {
			score += scoreSameDay
		}
	}

	title := strings.ToLower(event.Title)
	withPortion := title
	if idx := strings.Index(title, "with "); idx >= 0 {
		withPortion = title[idx+len("with "):]
	}

	names := append([]string{}, req.UnknownAttendees...)
	for _, email := range req.Attendees {
		if name, ok := m.dir.KnownName(email); ok {
			names = append(names, name)
		}
	}
	for _, name := range names {
		if strings.Contains(withPortion, strings.ToLower(name)) {
			score += scoreTitleName
			break
		}
	}

	eventEmails := event.AttendeeEmails()
	for _, email := range req.Attendees {
		if containsFold(eventEmails, email) {
			score += scoreAttendee
			break
		}
	}

	for _, name := range req.UnknownAttendees {
		lower := strings.ToLower(name)
		for _, email := range eventEmails {
			local := strings.SplitN(strings.ToLower(email), "@", 2)[0]
			if strings.Contains(local, lower) {
				score += scoreNameHit
				break
			}
		}
	}

	if req.Title != "" && req.Title != "Meeting" &&
		strings.Contains(title, strings.ToLower(firstWord(req.Title))) {
		score += scoreNameHit
	}

	return score
}

// MatchWindow returns the search window for a request: the requested day
// when a date was given, otherwise the next MatchWindowDays from now.
// Reschedules always search the wide window since their start is the
// target time, not the current one.
func MatchWindow(req *extract.MeetingRequest, now time.Time) (time.Time, time.Time) {
	if req.Action != extract.ActionReschedule && !req.Start.IsZero() {
		day := time.Date(req.Start.Year(), req.Start.Month(), req.Start.Day(), 0, 0, 0, 0, req.Start.Location())
		return day, day.AddDate(0, 0, 1)
	}
	return now, now.AddDate(0, 0, MatchWindowDays)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
