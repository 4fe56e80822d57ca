package api

import (
	"github.com/meetwise/meetwise/internal/calendar"
	"github.com/meetwise/meetwise/internal/extract"
)

// ChatRequest is one natural language utterance.
type ChatRequest struct {
	Message string `json:"message"`

	// Reference overrides the "now" the utterance is resolved against,
	// RFC 3339. Empty means the server clock.
	Reference string `json:"reference,omitempty"`
}

// ChatResponse carries the extraction and its applied outcome.
type ChatResponse struct {
	Request *extract.MeetingRequest `json:"request"`
	Outcome *calendar.Outcome       `json:"outcome"`
}

// ErrorResponse is the typed error envelope. Missing and Prompt are set
// for extraction failures the client can recover from by rephrasing.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Missing string `json:"missing,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}
