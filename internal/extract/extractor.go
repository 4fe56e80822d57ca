// Package extract turns a chat utterance into a structured MeetingRequest.
// The extractor is a pure function of its inputs plus an immutable context
// built once at startup; it performs no I/O and never reads the wall clock.
package extract

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/daytime"
	"github.com/meetwise/meetwise/internal/directory"
	apperrors "github.com/meetwise/meetwise/internal/errors"
	"github.com/meetwise/meetwise/internal/patterns"
)

// DefaultDurationMin is the meeting length applied when the utterance gives
// neither an end time nor a duration.
const DefaultDurationMin = 60

// Context carries the read-only state extraction depends on. Construct it
// once at startup and share it freely; it is safe for concurrent use.
type Context struct {
	directory   *directory.Directory
	patterns    *patterns.Set
	defaultMins int
}

// NewContext builds an extraction context. A nil directory or pattern set
// falls back to an empty directory and the built-in defaults.
func NewContext(dir *directory.Directory, pats *patterns.Set, defaultMins int) Context {
	if dir == nil {
		dir = directory.Empty()
	}
	if pats == nil {
		pats = patterns.Defaults()
	}
	if defaultMins <= 0 {
		defaultMins = DefaultDurationMin
	}
	return Context{directory: dir, patterns: pats, defaultMins: defaultMins}
}

// Directory exposes the context's name directory.
func (c Context) Directory() *directory.Directory {
	return c.directory
}

// Extractor extracts meeting details from sentences.
type Extractor struct {
	ctx    Context
	logger *zap.Logger
}

// New creates an extractor bound to a context.
func New(ctx Context, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{ctx: ctx, logger: logger}
}

var (
	explicitDurationRe = regexp.MustCompile(`\bfor\s+(\d+)\s*(minutes|mins|min|m|hours|hrs|hr|h)\b`)
	durationOnlyRe     = regexp.MustCompile(`\b(\d+)\s*(?:-|\s)?(minute|min|hour|hr)s?\s+(?:meeting|call|sync|chat|session)\b`)
	meetLinkRe         = regexp.MustCompile(`https://meet\.google\.com/[a-z-]+`)
	locationAtRe       = regexp.MustCompile(`(?i)\b(?:in|at)\s+the\s+([a-z][a-z0-9 ]{2,30}?(?:room|boardroom|office|cafe|lobby|hall))\b`)
)

// Extract classifies and structures one utterance against the reference
// instant. Failures are typed: an unresolvable mandatory start yields an
// ExtractionError, an ambiguous time carries a clarification prompt.
func (e *Extractor) Extract(sentence string, ref time.Time) (*MeetingRequest, error) {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return nil, apperrors.ErrEmptySentence
	}
	text := strings.ToLower(sentence)

	req := &MeetingRequest{
		RequestID: uuid.NewString(),
		Action:    e.classifyAction(text),
		Attendees: []string{},
		Sentence:  sentence,
	}
	req.Intent = e.classifyIntent(text, req.Action)

	resolved, unknown := e.extractAttendees(sentence)
	req.Attendees = resolved
	req.UnknownAttendees = unknown

	expr, err := daytime.New(ref).Parse(sentence)
	switch {
	case err == nil:
		if expr.Past(ref) {
			return nil, &ExtractionError{
				Missing: "start_time",
				Prompt:  "That time is in the past. When should it be?",
				Cause:   apperrors.ErrPastDate,
			}
		}
		req.Start = expr.Start
		req.End = expr.End
		req.AllDay = expr.AllDay
		req.HasDate = expr.HasDate || expr.HasTime

	case errors.Is(err, apperrors.ErrAmbiguousTime):
		var clarify *daytime.ClarificationError
		prompt := "Did you mean AM or PM?"
		if errors.As(err, &clarify) {
			prompt = clarify.Prompt
		}
		return nil, &ExtractionError{Missing: "start_time", Prompt: prompt, Cause: err}

	case req.Action == ActionList:
		// Listing without a date means "from now on".
		req.Start = ref
		req.AllDay = true

	default:
		return nil, &ExtractionError{Missing: "start_time", Cause: err}
	}

	req.DurationMin = e.extractDuration(text)
	if req.End.IsZero() && !req.AllDay {
		req.End = req.Start.Add(time.Duration(req.DurationMin) * time.Minute)
	}
	if !req.End.IsZero() && !req.Start.IsZero() {
		if mins := int(req.End.Sub(req.Start).Minutes()); mins > 0 {
			req.DurationMin = mins
		}
	}

	req.Title = e.extractTitle(sentence, req.Action)
	req.Description = extractDescription(sentence)
	req.Mode, req.Location, req.UseMeet = e.extractPlace(sentence, text)
	if p, ok := e.ctx.patterns.Match(patterns.RoleRecurrence, text); ok {
		req.Recurrence = p.Value
	}

	e.logger.Debug("extracted meeting request",
		zap.String("action", string(req.Action)),
		zap.Time("start", req.Start),
		zap.Int("attendees", len(req.Attendees)),
		zap.Int("unknown_attendees", len(req.UnknownAttendees)),
	)
	return req, nil
}

// classifyAction picks the highest-priority matching action pattern.
// Create is the default when nothing fires.
func (e *Extractor) classifyAction(text string) Action {
	if p, ok := e.ctx.patterns.Match(patterns.RoleAction, text); ok {
		return Action(p.Value)
	}
	return ActionCreate
}

// classifyIntent resolves the finer-grained intent behind the action,
// falling back to the action's canonical intent.
func (e *Extractor) classifyIntent(text string, action Action) string {
	if p, ok := e.ctx.patterns.Match(patterns.RoleIntent, text); ok {
		return p.Value
	}
	return intentForAction(action)
}

func intentForAction(action Action) string {
	switch action {
	case ActionCancel:
		return "cancel_meeting"
	case ActionReschedule:
		return "reschedule_meeting"
	case ActionUpdate:
		return "update_meeting"
	case ActionList:
		return "list_events"
	default:
		return "schedule_meeting"
	}
}

// extractDuration resolves the meeting length in minutes: explicit wording
// first, then duration keywords, then the context default.
func (e *Extractor) extractDuration(text string) int {
	if m := explicitDurationRe.FindStringSubmatch(text); m != nil {
		n := atoi(m[1])
		if strings.HasPrefix(m[2], "h") {
			n *= 60
		}
		if n > 0 {
			return n
		}
	}
	if m := durationOnlyRe.FindStringSubmatch(text); m != nil {
		n := atoi(m[1])
		if strings.HasPrefix(m[2], "h") {
			n *= 60
		}
		if n > 0 {
			return n
		}
	}
	if p, ok := e.ctx.patterns.Match(patterns.RoleDuration, text); ok {
		if n := atoi(p.Value); n > 0 {
			return n
		}
	}
	return e.ctx.defaultMins
}

// extractPlace resolves meeting mode and location. Online with an
// auto-generated meet link is the default.
func (e *Extractor) extractPlace(sentence, text string) (Mode, string, bool) {
	if link := meetLinkRe.FindString(sentence); link != "" {
		return ModeOnline, link, false
	}
	if m := locationAtRe.FindStringSubmatch(sentence); m != nil {
		return ModeOffline, strings.TrimSpace(m[1]), false
	}
	if p, ok := e.ctx.patterns.Match(patterns.RoleMode, text); ok {
		if p.Value == string(ModeOffline) {
			return ModeOffline, "", false
		}
		return ModeOnline, "", true
	}
	return ModeOnline, "", true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
