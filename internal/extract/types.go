package extract

import (
	"fmt"
	"time"

	apperrors "github.com/meetwise/meetwise/internal/errors"
)

// Action is what the user wants done with their calendar.
type Action string

const (
	ActionCreate     Action = "create"
	ActionCancel     Action = "cancel"
	ActionUpdate     Action = "update"
	ActionReschedule Action = "reschedule"
	ActionList       Action = "list"
)

// Mode distinguishes online meetings from in-person ones.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// MeetingRequest is the structured form of one utterance, ready for the
// calendar gateway. Attendees holds only addresses found in the directory;
// names that could not be resolved are listed in UnknownAttendees instead
// of being guessed at or dropped.
type MeetingRequest struct {
	RequestID        string    `json:"request_id"`
	Action           Action    `json:"action"`
	Intent           string    `json:"intent,omitempty"`
	Title            string    `json:"title,omitempty"`
	Attendees        []string  `json:"attendees"`
	UnknownAttendees []string  `json:"unknown_attendees,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	DurationMin      int       `json:"duration_min"`
	AllDay           bool      `json:"all_day,omitempty"`
	HasDate          bool      `json:"has_date,omitempty"`
	Mode             Mode      `json:"mode,omitempty"`
	Location         string    `json:"location,omitempty"`
	UseMeet          bool      `json:"use_meet,omitempty"`
	Recurrence       string    `json:"recurrence,omitempty"`
	Description      string    `json:"description,omitempty"`
	Sentence         string    `json:"sentence"`
}

// HasUnknownAttendees reports whether any names failed directory lookup.
func (r *MeetingRequest) HasUnknownAttendees() bool {
	return len(r.UnknownAttendees) > 0
}

// ExtractionError is a whole-utterance failure. Missing names the field
// that could not be resolved; Prompt, when set, is a question the caller
// can put to the user.
type ExtractionError struct {
	Missing string
	Prompt  string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Prompt != "" {
		return fmt.Sprintf("extraction failed: missing %s (%s)", e.Missing, e.Prompt)
	}
	return fmt.Sprintf("extraction failed: missing %s", e.Missing)
}

func (e *ExtractionError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return apperrors.ErrMissingStartTime
}
