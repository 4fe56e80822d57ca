package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a locally cached calendar event. Attendees is stored as a JSON
// array of email addresses.
type Event struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	// Google calendar the event belongs to; "primary" by default.
	CalendarID string `json:"calendar_id"`

	Title       string `json:"title"`
	Description string `json:"description" gorm:"type:text"`
	Location    string `json:"location"`

	StartTime time.Time `json:"start_time" gorm:"index"`
	EndTime   time.Time `json:"end_time"`
	AllDay    bool      `json:"all_day"`
	Timezone  string    `json:"timezone"`

	Recurrence string `json:"recurrence,omitempty"`

	Attendees string `json:"attendees"`
	Organizer string `json:"organizer,omitempty"`

	Status EventStatus `json:"status"`

	MeetLink string `json:"meet_link,omitempty"`

	// Source tracking: "chat" for extracted events, "google" for synced ones.
	Source   string `json:"source"`
	SourceID string `json:"source_id,omitempty"`

	LastSynced *time.Time `json:"last_synced,omitempty"`
	NeedsSync  bool       `json:"needs_sync"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)

// AttendeeEmails decodes the stored attendee list.
func (e *Event) AttendeeEmails() []string {
	if e.Attendees == "" {
		return nil
	}
	var emails []string
	if err := json.Unmarshal([]byte(e.Attendees), &emails); err != nil {
		return nil
	}
	return emails
}

// SetAttendees encodes the attendee list for storage.
func (e *Event) SetAttendees(emails []string) {
	if len(emails) == 0 {
		e.Attendees = ""
		return
	}
	data, _ := json.Marshal(emails)
	e.Attendees = string(data)
}

// Duration returns the event length.
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Overlaps reports whether two events share any time.
func (e *Event) Overlaps(other *Event) bool {
	return e.StartTime.Before(other.EndTime) && e.EndTime.After(other.StartTime)
}

// FormatTimeRange renders the event window for chat replies.
func (e *Event) FormatTimeRange() string {
	if e.AllDay {
		return e.StartTime.Format("Mon, Jan 2") + " (all day)"
	}
	startStr := e.StartTime.Format("Mon, Jan 2 3:04 PM")
	endStr := e.EndTime.Format("3:04 PM")
	if e.StartTime.Day() != e.EndTime.Day() {
		endStr = e.EndTime.Format("Mon, Jan 2 3:04 PM")
	}
	return startStr + " - " + endStr
}

// FormatDuration renders the event length for chat replies.
func (e *Event) FormatDuration() string {
	d := e.Duration()
	if d < time.Hour {
		return fmt.Sprintf("%d min", int(d.Minutes()))
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return fmt.Sprintf("%d hr", hours)
	}
	return fmt.Sprintf("%d hr %d min", hours, mins)
}

// Credentials stores a user's Google OAuth tokens.
type Credentials struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex:idx_creds_user_provider"`

	Provider string `json:"provider" gorm:"uniqueIndex:idx_creds_user_provider"`

	AccessToken  string    `json:"access_token" gorm:"type:text"`
	RefreshToken string    `json:"refresh_token" gorm:"type:text"`
	TokenExpiry  time.Time `json:"token_expiry"`

	// Incremental sync cursor for the provider.
	SyncToken  string     `json:"sync_token,omitempty"`
	LastSynced *time.Time `json:"last_synced,omitempty"`

	IsActive  bool   `json:"is_active"`
	LastError string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventList is a windowed listing with simple counts.
type EventList struct {
	Events   []Event `json:"events"`
	Total    int     `json:"total"`
	Today    int     `json:"today"`
	Upcoming int     `json:"upcoming"`
}

// SyncResult summarizes one sync pass against Google.
type SyncResult struct {
	Added         int      `json:"added"`
	Updated       int      `json:"updated"`
	Deleted       int      `json:"deleted"`
	Errors        []string `json:"errors,omitempty"`
	NextSyncToken string   `json:"next_sync_token,omitempty"`
}
