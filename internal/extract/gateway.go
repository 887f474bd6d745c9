// Package extract wraps the hosted-model call that classifies an email and
// pulls out its date-bearing text span. The model is a probabilistic
// collaborator: its output may be fenced, fragmented, or list-valued, so
// everything is normalized defensively before the rest of the pipeline
// sees it. See docs/ARCHITECTURE § Extraction Gateway.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/mail-agent/pkg/types"
)

// ErrQuotaExceeded marks an upstream rate-limit or quota exhaustion. It is
// the one extraction failure that must propagate to the caller: an email
// that hit the quota was never analyzed and must not be marked processed.
var ErrQuotaExceeded = errors.New("extract: upstream quota exceeded")

// ParseError is a malformed model response. Callers treat it as "no event
// found": logged, non-retryable.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract: parsing model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// quotaMarkers are substrings that identify quota exhaustion in error text
// from backends that do not return a typed error.
var quotaMarkers = []string{"429", "resource_exhausted", "rate_limit", "quota"}

// IsQuota reports whether err signals upstream quota exhaustion.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Backend abstracts the hosted model so tests can supply a mock. Complete
// returns the model's textual response with structured fragments already
// concatenated in order.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway builds the extraction prompt, invokes the model, and normalizes
// the response.
type Gateway struct {
	backend      Backend
	maxBodyChars int
}

// New builds a Gateway. maxBodyChars truncates email bodies before the
// model call; zero disables truncation.
func New(backend Backend, maxBodyChars int) *Gateway {
	return &Gateway{backend: backend, maxBodyChars: maxBodyChars}
}

// Extract runs one model call for the email and returns the normalized
// result. Quota errors come back wrapped in ErrQuotaExceeded; malformed
// responses come back as *ParseError.
func (g *Gateway) Extract(ctx context.Context, emailID, body string) (*types.Extraction, error) {
	if g.maxBodyChars > 0 && len(body) > g.maxBodyChars {
		// Back up to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence in the prompt.
		cut := g.maxBodyChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	prompt, err := renderPrompt(emailID, body)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := g.backend.Complete(ctx, prompt)
	if err != nil {
		if IsQuota(err) && !errors.Is(err, ErrQuotaExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return nil, err
	}

	return parseResponse(raw, emailID)
}

// flexString decodes either a JSON string or a list of strings, joining
// list elements with spaces. Some model responses return date_text as a
// fragment list.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexString(strings.Join(list, " "))
		return nil
	}
	// Last resort: a bare number or bool, kept verbatim.
	*f = flexString(strings.Trim(string(data), `"`))
	return nil
}

// rawExtraction is the wire shape of the model's JSON response.
type rawExtraction struct {
	EmailID    string     `json:"email_id"`
	Status     string     `json:"status"`
	EventType  flexString `json:"event_type"`
	EventTitle flexString `json:"event_title"`
	DateText   flexString `json:"date_text"`
	Confidence float64    `json:"confidence"`
	Action     string     `json:"action"`
}

// parseResponse strips code fences, decodes the JSON object, and
// normalizes field values.
func parseResponse(raw, emailID string) (*types.Extraction, error) {
	content := strings.TrimSpace(raw)
	if strings.HasPrefix(content, "```") {
		content = strings.ReplaceAll(content, "```json", "")
		content = strings.ReplaceAll(content, "```", "")
		content = strings.TrimSpace(content)
	}

	var r rawExtraction
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	result := &types.Extraction{
		EmailID:    emailID,
		Status:     normalizeStatus(r.Status, string(r.EventType), string(r.DateText)),
		EventType:  normalizeEventType(string(r.EventType)),
		EventTitle: strings.TrimSpace(string(r.EventTitle)),
		DateText:   strings.TrimSpace(string(r.DateText)),
		Confidence: r.Confidence,
		Action:     normalizeAction(r.Action),
	}
	if r.EmailID != "" {
		result.EmailID = r.EmailID
	}
	return result, nil
}

func normalizeStatus(status, eventType, dateText string) types.ExtractionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(types.StatusIgnored):
		return types.StatusIgnored
	case string(types.StatusProcessed):
		return types.StatusProcessed
	}
	// Missing or garbled status: processed only if the model produced
	// something usable.
	if eventType != "" || dateText != "" {
		return types.StatusProcessed
	}
	return types.StatusIgnored
}

// normalizeEventType lowercases the model's category and folds
// submission-like intents into deadline.
func normalizeEventType(eventType string) types.EventType {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "exam":
		return types.EventExam
	case "deadline", "submission", "assignment", "homework", "project":
		return types.EventDeadline
	case "meeting":
		return types.EventMeeting
	case "":
		return ""
	default:
		return types.EventMeeting
	}
}

func normalizeAction(action string) types.Action {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case string(types.ActionAutoAdd):
		return types.ActionAutoAdd
	case string(types.ActionNeedsConfirmation):
		return types.ActionNeedsConfirmation
	case string(types.ActionIgnored):
		return types.ActionIgnored
	default:
		return ""
	}
}
