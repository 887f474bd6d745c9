// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ExtractionStatus reports whether the model found a time-bound obligation.
type ExtractionStatus string

const (
	StatusIgnored   ExtractionStatus = "ignored"
	StatusProcessed ExtractionStatus = "processed"
)

// EventType categorizes a detected event. Submission-like intents
// (assignment, homework, project) normalize to deadline upstream.
type EventType string

const (
	EventExam     EventType = "exam"
	EventDeadline EventType = "deadline"
	EventMeeting  EventType = "meeting"
)

// Action is the pipeline's disposition for a detected event.
type Action string

const (
	ActionAutoAdd           Action = "auto_add"
	ActionNeedsConfirmation Action = "needs_confirmation"
	ActionIgnored           Action = "ignored"
)

// Extraction is the normalized model response for one email. Upstream
// output is probabilistic and occasionally malformed; every field here
// has already passed gateway normalization, but DateText may still be
// empty and EventType may be unset on ignored results.
type Extraction struct {
	EmailID    string           `json:"email_id" yaml:"email_id"`
	Status     ExtractionStatus `json:"status" yaml:"status"`
	EventType  EventType        `json:"event_type,omitempty" yaml:"event_type,omitempty"`
	EventTitle string           `json:"event_title,omitempty" yaml:"event_title,omitempty"`

	// DateText is the exact date-bearing span from the email
	// (e.g. "next Wednesday", "12th Feb"). The resolver consumes it verbatim.
	DateText string `json:"date_text,omitempty" yaml:"date_text,omitempty"`

	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Action     Action  `json:"action,omitempty" yaml:"action,omitempty"`
}

// Reminder is one notification override: a delivery method and a lead
// time in minutes before the event.
type Reminder struct {
	Method  string `json:"method" yaml:"method"`
	Minutes int    `json:"minutes" yaml:"minutes"`
}

// ReminderSet is the calendar API reminder block. UseDefault is always
// false; the policy table supplies explicit overrides.
type ReminderSet struct {
	UseDefault bool       `json:"useDefault" yaml:"useDefault"`
	Overrides  []Reminder `json:"overrides" yaml:"overrides"`
}

// EventDateTime wraps an RFC 3339 timestamp in the shape the calendar
// API expects.
type EventDateTime struct {
	DateTime string `json:"dateTime" yaml:"dateTime"`
}

// CalendarEvent is the payload handed verbatim to the downstream
// calendar-creation collaborator.
type CalendarEvent struct {
	Summary     string        `json:"summary" yaml:"summary"`
	Description string        `json:"description" yaml:"description"`
	Start       EventDateTime `json:"start" yaml:"start"`
	End         EventDateTime `json:"end" yaml:"end"`
	Reminders   ReminderSet   `json:"reminders" yaml:"reminders"`
}

// EventDecision is the pipeline's final output for one email. It is not
// mutated after the run completes; persistence is the caller's concern.
type EventDecision struct {
	// ID is a unique identifier for this decision record.
	ID string `json:"id" yaml:"id"`

	EmailID    string           `json:"email_id" yaml:"email_id"`
	Status     ExtractionStatus `json:"status" yaml:"status"`
	EventType  EventType        `json:"event_type,omitempty" yaml:"event_type,omitempty"`
	EventTitle string           `json:"event_title,omitempty" yaml:"event_title,omitempty"`
	DateText   string           `json:"date_text,omitempty" yaml:"date_text,omitempty"`

	// ResolvedDate is set only when a date was resolved, either directly
	// or via context linking. Nil means unresolved.
	ResolvedDate *time.Time `json:"resolved_date,omitempty" yaml:"resolved_date,omitempty"`

	Action Action `json:"action" yaml:"action"`

	// Reason explains non-obvious dispositions, e.g. which historical
	// event a borrowed date came from.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Calendar is populated only when ResolvedDate is set.
	Calendar *CalendarEvent `json:"calendar_payload,omitempty" yaml:"calendar_payload,omitempty"`
}

// Resolved reports whether the decision carries a concrete date.
func (d *EventDecision) Resolved() bool {
	return d.ResolvedDate != nil
}
