// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EmailInput is the immutable input to one pipeline run: the email body,
// the instant it was received, and routing context. ReceivedAt is the
// reference instant every relative date phrase resolves against.
type EmailInput struct {
	// EmailID identifies the source email (message id or store id).
	EmailID string `json:"email_id" yaml:"email_id"`

	// Sender is the From address, used for context linking.
	Sender string `json:"sender" yaml:"sender"`

	// Subject is the email subject line.
	Subject string `json:"subject" yaml:"subject"`

	// Body is the plain-text email content, attachment text included.
	Body string `json:"body" yaml:"body"`

	// ReceivedAt is the reference instant for date resolution. Never the
	// wall clock at processing time; reruns must resolve identically.
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`

	// UserID scopes history lookups to one mailbox owner.
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
}

// EmailRecord is an email as stored in the history database or in a
// mail-dir YAML file. It carries the analysis outcome fields once the
// pipeline has run.
type EmailRecord struct {
	// ID is the store-assigned identifier.
	ID string `json:"id" yaml:"id"`

	// MessageID is the upstream mailbox message id, unique per user.
	MessageID string `json:"message_id" yaml:"message_id"`

	// UserID scopes the record to one mailbox owner.
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty"`

	Sender    string `json:"sender" yaml:"sender"`
	Recipient string `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	Subject   string `json:"subject" yaml:"subject"`

	// Body is the plain-text content.
	Body string `json:"body" yaml:"body"`

	// AttachmentText is text extracted from attachments upstream. The
	// ingester appends it to Body under a sentinel marker so the model
	// weights it as high-priority content.
	AttachmentText string `json:"attachment_text,omitempty" yaml:"attachment_text,omitempty"`

	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`

	// Processed reports whether the pipeline has run for this email.
	// Quota-aborted runs leave it false so a later pass retries.
	Processed bool `json:"processed" yaml:"processed"`

	// Analysis outcome, populated by the decision write-back.
	EventTitle string     `json:"event_title,omitempty" yaml:"event_title,omitempty"`
	EventDate  *time.Time `json:"event_date,omitempty" yaml:"event_date,omitempty"`
	Category   string     `json:"category,omitempty" yaml:"category,omitempty"`
	Action     string     `json:"action,omitempty" yaml:"action,omitempty"`
	Reason     string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// HistoricalEvent is a past analysis outcome read back from the history
// store. The context linker borrows EventDate when direct resolution fails.
type HistoricalEvent struct {
	// Category is the detected event type of the historical email.
	Category string `json:"category" yaml:"category"`

	// Sender is the historical email's From address.
	Sender string `json:"sender" yaml:"sender"`

	// Subject is cited in the decision reason when a date is borrowed.
	Subject string `json:"subject" yaml:"subject"`

	// EventDate is the resolved date of the historical event.
	EventDate time.Time `json:"event_date" yaml:"event_date"`
}
