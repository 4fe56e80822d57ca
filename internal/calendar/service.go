package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meetwise/meetwise/internal/directory"
	apperrors "github.com/meetwise/meetwise/internal/errors"
	"github.com/meetwise/meetwise/internal/extract"
)

const googleProviderName = "google"

// Outcome is the result of applying a MeetingRequest, shaped for the web
// layer to render.
type Outcome struct {
	Action    extract.Action `json:"action"`
	Event     *Event         `json:"event,omitempty"`
	Events    []Event        `json:"events,omitempty"`
	Conflicts []Event        `json:"conflicts,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Message   string         `json:"message"`
	Synced    bool           `json:"synced"`
}

// Service executes structured meeting requests against the local store and,
// when the user has connected their account, Google Calendar.
type Service struct {
	store      *Store
	google     *GoogleProvider
	matcher    *Matcher
	logger     *zap.Logger
	userID     string
	calendarID string
	now        func() time.Time
}

// NewService wires the calendar service.
func NewService(store *Store, google *GoogleProvider, dir *directory.Directory, logger *zap.Logger, userID string) *Service {
	if userID == "" {
		userID = "default"
	}
	return &Service{
		store:      store,
		google:     google,
		matcher:    NewMatcher(dir),
		logger:     logger,
		userID:     userID,
		calendarID: "primary",
		now:        time.Now,
	}
}

// Apply routes a request to the matching operation.
func (s *Service) Apply(ctx context.Context, req *extract.MeetingRequest) (*Outcome, error) {
	switch req.Action {
	case extract.ActionCreate:
		return s.create(ctx, req)
	case extract.ActionCancel:
		return s.cancel(ctx, req)
	case extract.ActionUpdate, extract.ActionReschedule:
		return s.update(ctx, req)
	case extract.ActionList:
		return s.list(req)
	default:
		return nil, apperrors.New(apperrors.ErrBadRequest.Code, fmt.Sprintf("unsupported action %q", req.Action))
	}
}

func (s *Service) create(ctx context.Context, req *extract.MeetingRequest) (*Outcome, error) {
	event := &Event{
		UserID:      s.userID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.Start,
		EndTime:     req.End,
		AllDay:      req.AllDay,
		Recurrence:  req.Recurrence,
		Source:      "chat",
	}
	event.SetAttendees(req.Attendees)

	outcome := &Outcome{Action: req.Action, Warnings: unknownWarnings(req)}

	if !req.AllDay {
		conflicts, err := s.store.FindConflicts(s.userID, req.Start, req.End, "")
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "checking conflicts")
		}
		if len(conflicts) > 0 {
			outcome.Conflicts = conflicts
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("This overlaps with %q (%s).", conflicts[0].Title, conflicts[0].FormatTimeRange()))
		}
	}

	if err := s.store.CreateEvent(event); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "saving event")
	}

	if client, ok := s.googleClient(ctx); ok {
		created, err := s.google.CreateEvent(ctx, client, s.calendarID, event, req.UseMeet)
		if err != nil {
			s.logger.Warn("google push failed, event kept locally",
				zap.String("event_id", event.ID), zap.Error(err))
		} else {
			if created.MeetLink != "" {
				event.MeetLink = created.MeetLink
				if err := s.store.UpdateEvent(event); err != nil {
					s.logger.Warn("failed to store meet link", zap.String("event_id", event.ID), zap.Error(err))
				}
			}
			if err := s.store.MarkEventSynced(event.ID, created.SourceID); err != nil {
				s.logger.Warn("failed to mark event synced", zap.String("event_id", event.ID), zap.Error(err))
			}
			outcome.Synced = true
		}
	}

	outcome.Event = event
	outcome.Message = fmt.Sprintf("Scheduled %q for %s.", event.Title, event.FormatTimeRange())
	return outcome, nil
}

func (s *Service) cancel(ctx context.Context, req *extract.MeetingRequest) (*Outcome, error) {
	event, err := s.findTarget(req)
	if err != nil {
		return nil, err
	}

	if err := s.store.CancelEvent(event.ID); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "cancelling event")
	}

	outcome := &Outcome{Action: req.Action, Event: event}
	if client, ok := s.googleClient(ctx); ok && event.SourceID != "" {
		if err := s.google.DeleteEvent(ctx, client, s.calendarID, event.SourceID); err != nil {
			s.logger.Warn("google delete failed", zap.String("event_id", event.ID), zap.Error(err))
		} else {
			outcome.Synced = true
		}
	}

	outcome.Message = fmt.Sprintf("Cancelled %q (%s).", event.Title, event.FormatTimeRange())
	return outcome, nil
}

func (s *Service) update(ctx context.Context, req *extract.MeetingRequest) (*Outcome, error) {
	event, err := s.findTarget(req)
	if err != nil {
		return nil, err
	}

	if req.Action == extract.ActionReschedule && !req.Start.IsZero() {
		duration := event.Duration()
		event.StartTime = req.Start
		if !req.End.IsZero() {
			event.EndTime = req.End
		} else {
			event.EndTime = req.Start.Add(duration)
		}
		event.AllDay = req.AllDay
	}
	if req.Title != "" {
		event.Title = req.Title
	}
	if len(req.Attendees) > 0 {
		merged := event.AttendeeEmails()
		for _, email := range req.Attendees {
			if !containsFold(merged, email) {
				merged = append(merged, email)
			}
		}
		event.SetAttendees(merged)
	}

	if err := s.store.UpdateEvent(event); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "updating event")
	}

	outcome := &Outcome{Action: req.Action, Event: event, Warnings: unknownWarnings(req)}
	if client, ok := s.googleClient(ctx); ok && event.SourceID != "" {
		if _, err := s.google.UpdateEvent(ctx, client, s.calendarID, event.SourceID, event); err != nil {
			s.logger.Warn("google update failed", zap.String("event_id", event.ID), zap.Error(err))
		} else {
			if err := s.store.MarkEventSynced(event.ID, event.SourceID); err != nil {
				s.logger.Warn("failed to mark event synced", zap.String("event_id", event.ID), zap.Error(err))
			}
			outcome.Synced = true
		}
	}

	outcome.Message = fmt.Sprintf("Updated %q, now %s.", event.Title, event.FormatTimeRange())
	return outcome, nil
}

func (s *Service) list(req *extract.MeetingRequest) (*Outcome, error) {
	filters := EventFilters{Limit: 50}
	if req.HasDate && !req.Start.IsZero() {
		dayStart := time.Date(req.Start.Year(), req.Start.Month(), req.Start.Day(), 0, 0, 0, 0, req.Start.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)
		filters.StartAfter = &dayStart
		filters.StartBefore = &dayEnd
	} else {
		start := req.Start
		filters.StartAfter = &start
	}

	listing, err := s.store.ListEvents(s.userID, filters)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "listing events")
	}

	message := fmt.Sprintf("You have %d meeting(s).", listing.Total)
	if listing.Total == 0 {
		message = "Nothing on the calendar."
	}
	return &Outcome{
		Action:  req.Action,
		Events:  listing.Events,
		Message: message,
	}, nil
}

// findTarget locates the event a cancel/update refers to.
func (s *Service) findTarget(req *extract.MeetingRequest) (*Event, error) {
	start, end := MatchWindow(req, s.now())
	events, err := s.store.EventsInWindow(s.userID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "searching events")
	}

	event, ok := s.matcher.FindMatch(events, req)
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

// Connected reports whether the user has linked their Google account.
func (s *Service) Connected() bool {
	creds, err := s.store.GetCredentials(s.userID, googleProviderName)
	return err == nil && creds != nil && creds.IsActive
}

// ConnectURL returns the Google OAuth consent URL.
func (s *Service) ConnectURL(state string) (string, error) {
	if !s.google.Configured() {
		return "", apperrors.ErrNotConnected
	}
	return s.google.AuthURL(state), nil
}

// CompleteConnect finishes the OAuth flow and stores the tokens.
func (s *Service) CompleteConnect(ctx context.Context, code string) error {
	token, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}
	return s.store.SaveCredentials(&Credentials{
		UserID:       s.userID,
		Provider:     googleProviderName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		IsActive:     true,
	})
}

// SyncFromGoogle pulls remote changes into the local cache.
func (s *Service) SyncFromGoogle(ctx context.Context) (*SyncResult, error) {
	creds, err := s.store.GetCredentials(s.userID, googleProviderName)
	if err != nil || creds == nil || !creds.IsActive {
		return nil, apperrors.ErrNotConnected
	}

	client := s.google.Client(ctx, credsToken(creds))
	events, result, err := s.google.Sync(ctx, client, s.calendarID, creds.SyncToken)
	if err != nil {
		return nil, err
	}

	for i := range events {
		remote := &events[i]
		local, err := s.store.FindBySourceID(s.userID, remote.SourceID)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if local != nil {
			remote.ID = local.ID
			remote.CreatedAt = local.CreatedAt
		}
		remote.UserID = s.userID
		remote.CalendarID = s.calendarID
		now := s.now()
		remote.LastSynced = &now
		remote.UpdatedAt = now
		if remote.ID == "" {
			remote.ID = generateID()
			remote.CreatedAt = now
		}
		if err := s.store.UpsertEvent(remote); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if result.NextSyncToken != "" {
		if err := s.store.UpdateSyncToken(creds.ID, result.NextSyncToken); err != nil {
			s.logger.Warn("failed to persist sync token", zap.Error(err))
		}
	}

	s.logger.Info("google sync complete",
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
	)
	return result, nil
}

// UpcomingEvents exposes the next events for reminders and the API.
func (s *Service) UpcomingEvents(limit int) ([]Event, error) {
	return s.store.UpcomingEvents(s.userID, s.now(), limit)
}

// EventsForDay exposes one day's events for the API.
func (s *Service) EventsForDay(day time.Time) ([]Event, error) {
	return s.store.EventsForDay(s.userID, day)
}

func (s *Service) googleClient(ctx context.Context) (*http.Client, bool) {
	creds, err := s.store.GetCredentials(s.userID, googleProviderName)
	if err != nil || creds == nil || !creds.IsActive {
		return nil, false
	}
	return s.google.Client(ctx, credsToken(creds)), true
}

func credsToken(creds *Credentials) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.TokenExpiry,
	}
}

func unknownWarnings(req *extract.MeetingRequest) []string {
	var warnings []string
	for _, name := range req.UnknownAttendees {
		warnings = append(warnings, fmt.Sprintf("I don't have an email for %q; they were not invited.", name))
	}
	return warnings
}
