package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	apperrors "github.com/meetwise/meetwise/internal/errors"
	"github.com/meetwise/meetwise/internal/metrics"
)

const googleAPIBase = "https://www.googleapis.com/calendar/v3"

// googleEvent is the Google Calendar v3 wire format, reduced to the fields
// this service reads and writes.
type googleEvent struct {
	ID          string `json:"id,omitempty"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       struct {
		DateTime string `json:"dateTime,omitempty"`
		Date     string `json:"date,omitempty"`
		TimeZone string `json:"timeZone,omitempty"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime,omitempty"`
		Date     string `json:"date,omitempty"`
		TimeZone string `json:"timeZone,omitempty"`
	} `json:"end"`
	Attendees []googleAttendee `json:"attendees,omitempty"`
	Organizer struct {
		Email string `json:"email"`
	} `json:"organizer,omitempty"`
	Status         string                `json:"status,omitempty"`
	Recurrence     []string              `json:"recurrence,omitempty"`
	HangoutLink    string                `json:"hangoutLink,omitempty"`
	ConferenceData *googleConferenceData `json:"conferenceData,omitempty"`
	Created        string                `json:"created,omitempty"`
	Updated        string                `json:"updated,omitempty"`
}

type googleAttendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

type googleConferenceData struct {
	CreateRequest *googleConferenceRequest `json:"createRequest,omitempty"`
	EntryPoints   []googleEntryPoint       `json:"entryPoints,omitempty"`
}

type googleConferenceRequest struct {
	RequestID string `json:"requestId"`
}

type googleEntryPoint struct {
	EntryPointType string `json:"entryPointType"`
	URI            string `json:"uri"`
}

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Outbound request budget against the Google API.
	RequestsPerMinute int
}

// DefaultGoogleConfig returns sensible defaults.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		RedirectURL: "http://localhost:8080/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
		RequestsPerMinute: 300,
	}
}

// GoogleProvider talks to the Google Calendar REST API. All outbound calls
// pass through a rate limiter and a circuit breaker so a flapping upstream
// cannot take the whole assistant down with it.
type GoogleProvider struct {
	config  *oauth2.Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *zap.Logger
}

// NewGoogleProvider creates a provider from OAuth settings.
func NewGoogleProvider(cfg GoogleConfig, logger *zap.Logger) *GoogleProvider {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     google.Endpoint,
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 300
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "google-calendar",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("google calendar breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &GoogleProvider{
		config:  oauthConfig,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 10),
		breaker: breaker,
		logger:  logger,
	}
}

// Configured reports whether OAuth client credentials are present.
func (g *GoogleProvider) Configured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthURL returns the OAuth consent URL.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for tokens.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGatewayRequest.Code, "exchanging authorization code")
	}
	return token, nil
}

// Client builds an HTTP client that refreshes the token as needed.
func (g *GoogleProvider) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return g.config.Client(ctx, token)
}

// do sends one request through the limiter and breaker, counting the call
// under its operation label.
func (g *GoogleProvider) do(ctx context.Context, client *http.Client, req *http.Request, operation string) (*http.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		metrics.RecordGatewayCall(operation, err)
		return nil, apperrors.Wrap(err, apperrors.ErrGatewayThrottle.Code, "waiting for rate limiter")
	}

	resp, err := g.breaker.Execute(func() (*http.Response, error) {
		return client.Do(req.WithContext(ctx))
	})
	if err != nil {
		metrics.RecordGatewayCall(operation, err)
		return nil, apperrors.Wrap(err, apperrors.ErrGatewayRequest.Code, "google calendar request")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		metrics.RecordGatewayCall(operation, apperrors.ErrGatewayThrottle)
		return nil, apperrors.ErrGatewayThrottle
	}
	metrics.RecordGatewayCall(operation, nil)
	return resp, nil
}

func eventsURL(calendarID string) string {
	if strings.Contains(calendarID, "@") {
		calendarID = neturl.PathEscape(calendarID)
	}
	return fmt.Sprintf("%s/calendars/%s/events", googleAPIBase, calendarID)
}

// ListEvents fetches events in [timeMin, timeMax), recurring ones expanded.
func (g *GoogleProvider) ListEvents(ctx context.Context, client *http.Client, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	params := neturl.Values{}
	params.Set("timeMin", timeMin.Format(time.RFC3339))
	params.Set("timeMax", timeMax.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventsURL(calendarID)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.do(ctx, client, req, "list")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrGatewayRequest.Code,
			fmt.Sprintf("events list failed: %s - %s", resp.Status, string(body)))
	}

	var result struct {
		Items []googleEvent `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGatewayRequest.Code, "decoding events list")
	}

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, fromGoogleEvent(item))
	}
	return events, nil
}

// CreateEvent pushes an event to Google. withMeet requests a generated
// Google Meet link on the created event.
func (g *GoogleProvider) CreateEvent(ctx context.Context, client *http.Client, calendarID string, event *Event, withMeet bool) (*Event, error) {
	ge := toGoogleEvent(event)

	apiURL := eventsURL(calendarID)
	if withMeet {
		ge.ConferenceData = &googleConferenceData{
			CreateRequest: &googleConferenceRequest{RequestID: uuid.NewString()},
		}
		apiURL += "?conferenceDataVersion=1"
	}

	body, err := json.Marshal(ge)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.do(ctx, client, req, "create")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrGatewayRequest.Code,
			fmt.Sprintf("create event failed: %s - %s", resp.Status, string(respBody)))
	}

	var created googleEvent
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGatewayRequest.Code, "decoding created event")
	}

	result := fromGoogleEvent(created)
	return &result, nil
}

// UpdateEvent replaces an event on Google.
func (g *GoogleProvider) UpdateEvent(ctx context.Context, client *http.Client, calendarID, eventID string, event *Event) (*Event, error) {
	ge := toGoogleEvent(event)
	body, err := json.Marshal(ge)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		eventsURL(calendarID)+"/"+eventID, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.do(ctx, client, req, "update")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrGatewayRequest.Code,
			fmt.Sprintf("update event failed: %s - %s", resp.Status, string(respBody)))
	}

	var updated googleEvent
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGatewayRequest.Code, "decoding updated event")
	}

	result := fromGoogleEvent(updated)
	return &result, nil
}

// DeleteEvent removes an event from Google.
func (g *GoogleProvider) DeleteEvent(ctx context.Context, client *http.Client, calendarID, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, eventsURL(calendarID)+"/"+eventID, nil)
	if err != nil {
		return err
	}

	resp, err := g.do(ctx, client, req, "delete")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.ErrGatewayRequest.Code,
			fmt.Sprintf("delete event failed: %s", resp.Status))
	}
	return nil
}

// Sync performs an incremental sync, returning changed events and the next
// sync token. An expired token falls back to a full re-sync.
func (g *GoogleProvider) Sync(ctx context.Context, client *http.Client, calendarID, syncToken string) ([]Event, *SyncResult, error) {
	params := neturl.Values{}
	params.Set("singleEvents", "true")
	if syncToken != "" {
		params.Set("syncToken", syncToken)
	} else {
		params.Set("timeMin", time.Now().AddDate(0, 0, -30).Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventsURL(calendarID)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := g.do(ctx, client, req, "sync")
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		// Sync token expired.
		return g.Sync(ctx, client, calendarID, "")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, nil, apperrors.New(apperrors.ErrGatewayRequest.Code,
			fmt.Sprintf("sync failed: %s - %s", resp.Status, string(body)))
	}

	var result struct {
		Items         []googleEvent `json:"items"`
		NextSyncToken string        `json:"nextSyncToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrGatewayRequest.Code, "decoding sync response")
	}

	syncResult := &SyncResult{NextSyncToken: result.NextSyncToken}
	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		switch item.Status {
		case "cancelled":
			syncResult.Deleted++
		default:
			if item.Created == item.Updated {
				syncResult.Added++
			} else {
				syncResult.Updated++
			}
		}
		events = append(events, fromGoogleEvent(item))
	}
	return events, syncResult, nil
}

// fromGoogleEvent maps the wire format to the local event model.
func fromGoogleEvent(ge googleEvent) Event {
	event := Event{
		SourceID:    ge.ID,
		Title:       ge.Summary,
		Description: ge.Description,
		Location:    ge.Location,
		Status:      EventStatusConfirmed,
		Source:      "google",
		MeetLink:    ge.HangoutLink,
	}

	if ge.Start.DateTime != "" {
		event.StartTime, _ = time.Parse(time.RFC3339, ge.Start.DateTime)
		event.Timezone = ge.Start.TimeZone
	} else if ge.Start.Date != "" {
		event.StartTime, _ = time.Parse("2006-01-02", ge.Start.Date)
		event.AllDay = true
	}
	if ge.End.DateTime != "" {
		event.EndTime, _ = time.Parse(time.RFC3339, ge.End.DateTime)
	} else if ge.End.Date != "" {
		event.EndTime, _ = time.Parse("2006-01-02", ge.End.Date)
	}

	switch ge.Status {
	case "tentative":
		event.Status = EventStatusTentative
	case "cancelled":
		event.Status = EventStatusCancelled
	}

	if len(ge.Recurrence) > 0 {
		event.Recurrence = ge.Recurrence[0]
	}
	if ge.Organizer.Email != "" {
		event.Organizer = ge.Organizer.Email
	}
	if event.MeetLink == "" && ge.ConferenceData != nil {
		for _, ep := range ge.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				event.MeetLink = ep.URI
			}
		}
	}

	if len(ge.Attendees) > 0 {
		emails := make([]string, len(ge.Attendees))
		for i, a := range ge.Attendees {
			emails[i] = a.Email
		}
		event.SetAttendees(emails)
	}

	return event
}

// toGoogleEvent maps the local event model to the wire format.
func toGoogleEvent(event *Event) googleEvent {
	ge := googleEvent{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
	}

	if event.AllDay {
		ge.Start.Date = event.StartTime.Format("2006-01-02")
		end := event.EndTime
		if end.IsZero() {
			end = event.StartTime.AddDate(0, 0, 1)
		}
		ge.End.Date = end.Format("2006-01-02")
	} else {
		ge.Start.DateTime = event.StartTime.Format(time.RFC3339)
		ge.Start.TimeZone = event.Timezone
		ge.End.DateTime = event.EndTime.Format(time.RFC3339)
		ge.End.TimeZone = event.Timezone
	}

	switch event.Status {
	case EventStatusTentative:
		ge.Status = "tentative"
	case EventStatusCancelled:
		ge.Status = "cancelled"
	default:
		ge.Status = "confirmed"
	}

	if event.Recurrence != "" {
		ge.Recurrence = []string{event.Recurrence}
	}
	for _, email := range event.AttendeeEmails() {
		ge.Attendees = append(ge.Attendees, googleAttendee{Email: email})
	}

	return ge
}
