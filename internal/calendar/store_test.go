package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func testEvent(userID string, title string, start time.Time, duration time.Duration) *Event {
	return &Event{
		UserID:    userID,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(duration),
		Source:    "chat",
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	store := newTestStore(t)

	start := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	event := testEvent("u1", "Meeting with John", start, time.Hour)
	event.SetAttendees([]string{"john@example.com"})

	require.NoError(t, store.CreateEvent(event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventStatusConfirmed, event.Status)
	assert.Equal(t, "primary", event.CalendarID)
	assert.True(t, event.NeedsSync)

	got, err := store.GetEvent(event.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Meeting with John", got.Title)
	assert.Equal(t, []string{"john@example.com"}, got.AttendeeEmails())
	assert.True(t, got.StartTime.Equal(start))
}

func TestGetEventNotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetEvent("evt_missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCancelEventSoftDeletes(t *testing.T) {
	store := newTestStore(t)

	start := time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)
	event := testEvent("u1", "Standup", start, 30*time.Minute)
	require.NoError(t, store.CreateEvent(event))

	require.NoError(t, store.CancelEvent(event.ID))

	got, err := store.GetEvent(event.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, EventStatusCancelled, got.Status)

	listing, err := store.ListEvents("u1", EventFilters{})
	require.NoError(t, err)
	assert.Equal(t, 0, listing.Total)
}

func TestListEventsFilters(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateEvent(testEvent("u1", "Sync with Alice", base, time.Hour)))
	require.NoError(t, store.CreateEvent(testEvent("u1", "Planning", base.AddDate(0, 0, 1), time.Hour)))
	require.NoError(t, store.CreateEvent(testEvent("u1", "Retro", base.AddDate(0, 0, 2), time.Hour)))
	require.NoError(t, store.CreateEvent(testEvent("u2", "Other user", base, time.Hour)))

	listing, err := store.ListEvents("u1", EventFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Total)
	// Oldest first.
	assert.Equal(t, "Sync with Alice", listing.Events[0].Title)

	after := base.AddDate(0, 0, 1)
	listing, err = store.ListEvents("u1", EventFilters{StartAfter: &after})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)

	listing, err = store.ListEvents("u1", EventFilters{Search: "retro"})
	require.NoError(t, err)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, "Retro", listing.Events[0].Title)

	listing, err = store.ListEvents("u1", EventFilters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, listing.Events, 1)
}

func TestEventsInWindow(t *testing.T) {
	store := newTestStore(t)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateEvent(testEvent("u1", "Morning", day.Add(9*time.Hour), time.Hour)))
	require.NoError(t, store.CreateEvent(testEvent("u1", "Afternoon", day.Add(14*time.Hour), time.Hour)))
	require.NoError(t, store.CreateEvent(testEvent("u1", "Next day", day.AddDate(0, 0, 1).Add(9*time.Hour), time.Hour)))

	events, err := store.EventsInWindow("u1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Morning", events[0].Title)
	assert.Equal(t, "Afternoon", events[1].Title)
}

func TestFindConflicts(t *testing.T) {
	store := newTestStore(t)

	start := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	existing := testEvent("u1", "Deep dive", start, time.Hour)
	require.NoError(t, store.CreateEvent(existing))

	// Overlapping window.
	conflicts, err := store.FindConflicts("u1", start.Add(30*time.Minute), start.Add(90*time.Minute), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Deep dive", conflicts[0].Title)

	// Back-to-back is not a conflict.
	conflicts, err = store.FindConflicts("u1", start.Add(time.Hour), start.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// The event does not conflict with itself.
	conflicts, err = store.FindConflicts("u1", start, start.Add(time.Hour), existing.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestMarkEventSynced(t *testing.T) {
	store := newTestStore(t)

	event := testEvent("u1", "Kickoff", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), time.Hour)
	require.NoError(t, store.CreateEvent(event))
	require.True(t, event.NeedsSync)

	require.NoError(t, store.MarkEventSynced(event.ID, "google-abc"))

	got, err := store.GetEvent(event.ID)
	require.NoError(t, err)
	assert.False(t, got.NeedsSync)
	assert.Equal(t, "google-abc", got.SourceID)
	assert.NotNil(t, got.LastSynced)

	found, err := store.FindBySourceID("u1", "google-abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, event.ID, found.ID)
}

func TestUpsertEvent(t *testing.T) {
	store := newTestStore(t)

	event := testEvent("u1", "Original", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), time.Hour)
	event.ID = "evt_fixed"
	require.NoError(t, store.UpsertEvent(event))

	event.Title = "Renamed"
	require.NoError(t, store.UpsertEvent(event))

	got, err := store.GetEvent("evt_fixed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	listing, err := store.ListEvents("u1", EventFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Total)
}

func TestCredentialsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	creds := &Credentials{
		UserID:       "u1",
		Provider:     "google",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		IsActive:     true,
	}
	require.NoError(t, store.SaveCredentials(creds))
	require.NotEmpty(t, creds.ID)

	got, err := store.GetCredentials("u1", "google")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "at-1", got.AccessToken)

	// Saving again for the same user+provider refreshes, not duplicates.
	require.NoError(t, store.SaveCredentials(&Credentials{
		UserID:      "u1",
		Provider:    "google",
		AccessToken: "at-2",
		IsActive:    true,
	}))
	got, err = store.GetCredentials("u1", "google")
	require.NoError(t, err)
	assert.Equal(t, "at-2", got.AccessToken)

	require.NoError(t, store.UpdateSyncToken(got.ID, "tok-99"))
	got, err = store.GetCredentials("u1", "google")
	require.NoError(t, err)
	assert.Equal(t, "tok-99", got.SyncToken)

	missing, err := store.GetCredentials("u1", "outlook")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
