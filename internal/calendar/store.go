package calendar

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists events and credentials in the local database. The local
// cache is the source of truth for chat responses; Google is reconciled
// through the sync loop.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and returns a store.
func NewStore(db *gorm.DB) (*Store, error) {
	store := &Store{db: db}

	if err := db.AutoMigrate(&Event{}, &Credentials{}); err != nil {
		return nil, fmt.Errorf("failed to migrate calendar schemas: %w", err)
	}
	store.createIndexes()

	return store, nil
}

func (s *Store) createIndexes() {
	s.db.Exec("CREATE INDEX IF NOT EXISTS idx_events_user_start ON events(user_id, start_time)")
	s.db.Exec("CREATE INDEX IF NOT EXISTS idx_events_user_status ON events(user_id, status)")
}

func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "evt_" + hex.EncodeToString(bytes)
}

// CreateEvent inserts a new event and marks it for sync.
func (s *Store) CreateEvent(event *Event) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.Status == "" {
		event.Status = EventStatusConfirmed
	}
	if event.CalendarID == "" {
		event.CalendarID = "primary"
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	event.NeedsSync = true

	return s.db.Create(event).Error
}

// GetEvent retrieves an event by ID; nil when absent.
func (s *Store) GetEvent(eventID string) (*Event, error) {
	var event Event
	err := s.db.Where("id = ?", eventID).First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &event, err
}

// UpdateEvent saves changes and marks the event for sync.
func (s *Store) UpdateEvent(event *Event) error {
	event.UpdatedAt = time.Now()
	event.NeedsSync = true
	return s.db.Save(event).Error
}

// CancelEvent soft-deletes by marking the event cancelled.
func (s *Store) CancelEvent(eventID string) error {
	return s.db.Model(&Event{}).Where("id = ?", eventID).Updates(map[string]interface{}{
		"status":     EventStatusCancelled,
		"needs_sync": true,
		"updated_at": time.Now(),
	}).Error
}

// HardDeleteEvent permanently removes an event.
func (s *Store) HardDeleteEvent(eventID string) error {
	return s.db.Where("id = ?", eventID).Delete(&Event{}).Error
}

// EventFilters narrow a listing.
type EventFilters struct {
	StartAfter  *time.Time
	StartBefore *time.Time
	Search      string
	Limit       int
}

// ListEvents lists non-cancelled events for a user, oldest first.
func (s *Store) ListEvents(userID string, filters EventFilters) (*EventList, error) {
	query := s.db.Where("user_id = ? AND status != ?", userID, EventStatusCancelled)

	if filters.StartAfter != nil {
		query = query.Where("start_time >= ?", filters.StartAfter)
	}
	if filters.StartBefore != nil {
		query = query.Where("start_time <= ?", filters.StartBefore)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where(
			"title LIKE ? OR description LIKE ? OR location LIKE ?",
			pattern, pattern, pattern,
		)
	}

	query = query.Order("start_time ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	todayEnd := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	var today, upcoming int
	for _, e := range events {
		if e.StartTime.Before(todayEnd) && e.StartTime.After(now.Add(-24*time.Hour)) {
			today++
		}
		if e.StartTime.After(now) {
			upcoming++
		}
	}

	return &EventList{
		Events:   events,
		Total:    len(events),
		Today:    today,
		Upcoming: upcoming,
	}, nil
}

// EventsForDay returns events overlapping one calendar day.
func (s *Store) EventsForDay(userID string, day time.Time) ([]Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var events []Event
	err := s.db.Where(
		"user_id = ? AND status != ? AND start_time < ? AND end_time > ?",
		userID, EventStatusCancelled, end, start,
	).Order("start_time ASC").Find(&events).Error

	return events, err
}

// EventsInWindow returns events starting inside [start, end).
func (s *Store) EventsInWindow(userID string, start, end time.Time) ([]Event, error) {
	var events []Event
	err := s.db.Where(
		"user_id = ? AND status != ? AND start_time >= ? AND start_time < ?",
		userID, EventStatusCancelled, start, end,
	).Order("start_time ASC").Find(&events).Error

	return events, err
}

// UpcomingEvents returns the next events at or after now.
func (s *Store) UpcomingEvents(userID string, now time.Time, limit int) ([]Event, error) {
	var events []Event
	err := s.db.Where(
		"user_id = ? AND status != ? AND start_time >= ?",
		userID, EventStatusCancelled, now,
	).Order("start_time ASC").Limit(limit).Find(&events).Error

	return events, err
}

// FindConflicts returns non-cancelled events overlapping [start, end).
func (s *Store) FindConflicts(userID string, start, end time.Time, excludeID string) ([]Event, error) {
	query := s.db.Where(
		"user_id = ? AND status != ? AND start_time < ? AND end_time > ?",
		userID, EventStatusCancelled, end, start,
	)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}

	var events []Event
	err := query.Order("start_time ASC").Find(&events).Error
	return events, err
}

// EventsNeedingSync returns locally changed events awaiting a Google push.
func (s *Store) EventsNeedingSync(userID string, limit int) ([]Event, error) {
	var events []Event
	err := s.db.Where("user_id = ? AND needs_sync = ?", userID, true).
		Limit(limit).Find(&events).Error
	return events, err
}

// MarkEventSynced clears the sync flag and records the Google event ID.
func (s *Store) MarkEventSynced(eventID string, externalID string) error {
	now := time.Now()
	return s.db.Model(&Event{}).Where("id = ?", eventID).Updates(map[string]interface{}{
		"needs_sync":  false,
		"last_synced": &now,
		"source_id":   externalID,
		"updated_at":  now,
	}).Error
}

// UpsertEvent creates or replaces an event, used by the sync loop.
func (s *Store) UpsertEvent(event *Event) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(event).Error
}

// FindBySourceID looks an event up by its Google event ID.
func (s *Store) FindBySourceID(userID, sourceID string) (*Event, error) {
	var event Event
	err := s.db.Where("user_id = ? AND source_id = ?", userID, sourceID).First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &event, err
}

// SaveCredentials inserts or refreshes a user's provider tokens.
func (s *Store) SaveCredentials(creds *Credentials) error {
	if creds.ID == "" {
		creds.ID = generateID()
		creds.CreatedAt = time.Now()
	}
	creds.UpdatedAt = time.Now()

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		UpdateAll: true,
	}).Create(creds).Error
}

// GetCredentials retrieves tokens for a user and provider; nil when absent.
func (s *Store) GetCredentials(userID, provider string) (*Credentials, error) {
	var creds Credentials
	err := s.db.Where("user_id = ? AND provider = ?", userID, provider).First(&creds).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &creds, err
}

// UpdateSyncToken records the incremental sync cursor.
func (s *Store) UpdateSyncToken(credsID string, syncToken string) error {
	now := time.Now()
	return s.db.Model(&Credentials{}).Where("id = ?", credsID).Updates(map[string]interface{}{
		"sync_token":  syncToken,
		"last_synced": &now,
		"updated_at":  now,
	}).Error
}

// DeleteCredentials removes stored tokens.
func (s *Store) DeleteCredentials(credsID string) error {
	return s.db.Where("id = ?", credsID).Delete(&Credentials{}).Error
}
