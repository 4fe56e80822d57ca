package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/directory"
	apperrors "github.com/meetwise/meetwise/internal/errors"
)

// Monday, January 1st 2024, 09:00.
var ref = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func testExtractor() *Extractor {
	dir := directory.New(
		map[string]string{
			"John":  "john@example.com",
			"Sarah": "sarah.chen@example.com",
		},
		map[string][]string{
			"platform": {"john@example.com", "sarah.chen@example.com"},
		},
	)
	return New(NewContext(dir, nil, 0), zap.NewNop())
}

func TestExtractCreateWithAttendeeAndTime(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Meeting with John tomorrow at 3pm", ref)
	require.NoError(t, err)

	assert.Equal(t, ActionCreate, req.Action)
	assert.Equal(t, "schedule_meeting", req.Intent)
	assert.Contains(t, req.Title, "Meeting")
	assert.Equal(t, []string{"john@example.com"}, req.Attendees)
	assert.Empty(t, req.UnknownAttendees)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC), req.End)
	assert.NotEmpty(t, req.RequestID)
}

func TestExtractCancelNearestFutureTime(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Cancel my 2pm meeting", ref)
	require.NoError(t, err)

	assert.Equal(t, ActionCancel, req.Action)
	assert.Equal(t, "cancel_meeting", req.Intent)
	assert.Equal(t, time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC), req.Start)
	assert.Empty(t, req.Attendees)

	// After 2pm the same fragment points at tomorrow.
	late := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	req, err = e.Extract("Cancel my 2pm meeting", late)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), req.Start)
}

func TestExtractUnknownAttendeeSurfaced(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Meeting with Zyx tomorrow", ref)
	require.NoError(t, err)

	assert.Equal(t, ActionCreate, req.Action)
	assert.Empty(t, req.Attendees)
	assert.Equal(t, []string{"Zyx"}, req.UnknownAttendees)
	assert.True(t, req.HasUnknownAttendees())
}

func TestExtractMissingStartFailsClosed(t *testing.T) {
	e := testExtractor()

	_, err := e.Extract("Meeting whenever", ref)
	require.Error(t, err)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "start_time", ee.Missing)
	assert.ErrorIs(t, err, apperrors.ErrUnparseableDate)
}

func TestExtractAmbiguousTimeAsksForClarification(t *testing.T) {
	e := testExtractor()

	_, err := e.Extract("Meeting with John tomorrow at 9", ref)
	require.Error(t, err)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "start_time", ee.Missing)
	assert.NotEmpty(t, ee.Prompt)
	assert.ErrorIs(t, err, apperrors.ErrAmbiguousTime)
}

func TestExtractPastDateRejected(t *testing.T) {
	e := testExtractor()

	_, err := e.Extract("Meeting with John yesterday at 3pm", ref)
	require.Error(t, err)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, apperrors.ErrPastDate)
}

func TestExtractEmptySentence(t *testing.T) {
	e := testExtractor()

	_, err := e.Extract("   ", ref)
	assert.ErrorIs(t, err, apperrors.ErrEmptySentence)
}

func TestExtractDurations(t *testing.T) {
	e := testExtractor()

	tests := []struct {
		name     string
		sentence string
		wantMins int
	}{
		{"explicit minutes", "Meeting with John tomorrow at 3pm for 45 min", 45},
		{"explicit hours", "Meeting with John tomorrow at 3pm for 2 hours", 120},
		{"quick keyword", "Quick sync with Sarah tomorrow at 10am", 15},
		{"half hour", "Half an hour catch-up with John tomorrow at 4pm", 30},
		{"default", "Meeting with John tomorrow at 3pm", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := e.Extract(tt.sentence, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMins, req.DurationMin)
			assert.Equal(t, req.Start.Add(time.Duration(tt.wantMins)*time.Minute), req.End)
		})
	}
}

func TestExtractTimeRangeSetsEnd(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Block tomorrow 2-5pm with John", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC), req.End)
	assert.Equal(t, 180, req.DurationMin)
}

func TestExtractListWithoutDate(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Show my agenda", ref)
	require.NoError(t, err)

	assert.Equal(t, ActionList, req.Action)
	assert.Equal(t, ref, req.Start)
	assert.False(t, req.HasDate)
}

func TestExtractListWithDate(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Show my agenda for tomorrow", ref)
	require.NoError(t, err)

	assert.Equal(t, ActionList, req.Action)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), req.Start)
	assert.True(t, req.AllDay)
	assert.True(t, req.HasDate)
}

func TestExtractRecurrence(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Standup with John every monday at 9:30am", ref)
	require.NoError(t, err)

	assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO", req.Recurrence)
	assert.Equal(t, "Standup", req.Title[:7])
}

func TestExtractTeamExpansion(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Sync with the platform team tomorrow at 11am", ref)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"john@example.com", "sarah.chen@example.com"}, req.Attendees)
	assert.Empty(t, req.UnknownAttendees)
}

func TestExtractLiteralEmail(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Meeting with guest@partner.io tomorrow at 3pm", ref)
	require.NoError(t, err)

	assert.Equal(t, []string{"guest@partner.io"}, req.Attendees)
	assert.Empty(t, req.UnknownAttendees)
}

func TestExtractMultipleAttendees(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Meeting with John, Sarah and Zyx tomorrow at 3pm", ref)
	require.NoError(t, err)

	assert.Equal(t, []string{"john@example.com", "sarah.chen@example.com"}, req.Attendees)
	assert.Equal(t, []string{"Zyx"}, req.UnknownAttendees)
}

func TestExtractUpdateKeepsTitleEmpty(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Move my 2pm meeting to 4pm", ref)
	require.NoError(t, err)

	assert.Equal(t, ActionReschedule, req.Action)
	assert.Equal(t, "reschedule_meeting", req.Intent)
	assert.Empty(t, req.Title)
}

func TestExtractDescription(t *testing.T) {
	e := testExtractor()

	tests := []struct {
		name     string
		sentence string
		want     string
	}{
		{"to discuss", "Meeting with John tomorrow at 3pm to discuss the term sheet", "The term sheet"},
		{"about with trailing schedule words", "Sync about release planning tomorrow at 2pm", "Release planning"},
		{"regarding", "Call with Sarah tomorrow at 10am regarding the vendor contract", "The vendor contract"},
		{"none", "Meeting with John tomorrow at 3pm", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := e.Extract(tt.sentence, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Description)
		})
	}
}

func TestExtractMealAvoidance(t *testing.T) {
	e := testExtractor()

	// The meal word names a window to keep clear, never the meeting time.
	// With no time of its own the sentence needs clarification.
	_, err := e.Extract("Schedule a meeting with John tomorrow, avoid lunch time", ref)
	require.Error(t, err)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "start_time", ee.Missing)
	assert.Contains(t, ee.Prompt, "lunch")

	// A requested time inside the window moves past it.
	req, err := e.Extract("Meeting with John tomorrow at 1pm, avoid lunch", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 15, 0, 0, time.UTC), req.Start)
}

func TestExtractPlace(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Meeting with John in the boardroom tomorrow at 3pm", ref)
	require.NoError(t, err)
	assert.Equal(t, ModeOffline, req.Mode)
	assert.Equal(t, "boardroom", req.Location)
	assert.False(t, req.UseMeet)

	req, err = e.Extract("Meeting with John tomorrow at 3pm", ref)
	require.NoError(t, err)
	assert.Equal(t, ModeOnline, req.Mode)
	assert.True(t, req.UseMeet)
}

func TestExtractAboutTopicTitle(t *testing.T) {
	e := testExtractor()

	req, err := e.Extract("Sync about release planning tomorrow at 2pm", ref)
	require.NoError(t, err)
	assert.Equal(t, "Sync about release planning", req.Title)
}

func TestExtractDeterministic(t *testing.T) {
	e := testExtractor()

	a, err := e.Extract("Meeting with John tomorrow at 3pm", ref)
	require.NoError(t, err)
	b, err := e.Extract("Meeting with John tomorrow at 3pm", ref)
	require.NoError(t, err)

	// Everything except the per-request ID is identical.
	a.RequestID, b.RequestID = "", ""
	assert.Equal(t, a, b)
}

func TestExtractionErrorUnwrapDefault(t *testing.T) {
	err := &ExtractionError{Missing: "start_time"}
	assert.True(t, errors.Is(err, apperrors.ErrMissingStartTime))
}
