// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent owns the event-detection pipeline: one model extraction,
// deterministic date resolution, optional context linking, and the final
// decision record with its calendar payload.
// See docs/ARCHITECTURE § Decision Pipeline.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/mail-agent/internal/dateparse"
	"github.com/pdiddy/mail-agent/internal/extract"
	"github.com/pdiddy/mail-agent/internal/linker"
	"github.com/pdiddy/mail-agent/internal/reminder"
	"github.com/pdiddy/mail-agent/pkg/types"
)

// eventDuration is the default calendar slot when the email gives only a
// start instant.
const eventDuration = time.Hour

// Extractor is the gateway to the hosted model. *extract.Gateway
// satisfies it; tests supply fakes.
type Extractor interface {
	Extract(ctx context.Context, emailID, body string) (*types.Extraction, error)
}

// ContextLinker borrows a date from history when direct resolution fails.
// *linker.Linker satisfies it.
type ContextLinker interface {
	Link(ctx context.Context, userID, sender, dateText string, ref time.Time) (*linker.Result, error)
}

// Agent composes the pipeline stages. Construct one per process; it holds
// no per-run state.
type Agent struct {
	extractor Extractor
	linker    ContextLinker // nil disables context linking
	warn      io.Writer
}

// Option configures an Agent.
type Option func(*Agent)

// WithLinker enables context linking.
func WithLinker(l ContextLinker) Option {
	return func(a *Agent) { a.linker = l }
}

// WithWarnWriter directs best-effort warnings (linker lookup failures,
// discarded parse errors) somewhere visible. Default is to drop them.
func WithWarnWriter(w io.Writer) Option {
	return func(a *Agent) { a.warn = w }
}

// New builds an Agent over an extractor.
func New(extractor Extractor, opts ...Option) *Agent {
	a := &Agent{extractor: extractor, warn: io.Discard}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the pipeline for one email and returns its decision.
//
// The only error return is upstream quota exhaustion
// (extract.ErrQuotaExceeded), which the caller must treat as retryable:
// the email was never analyzed and must not be marked processed. Every
// other failure degrades to a well-formed ignored or needs-confirmation
// decision.
func (a *Agent) Analyze(ctx context.Context, in types.EmailInput) (*types.EventDecision, error) {
	ext, err := a.extractor.Extract(ctx, in.EmailID, in.Body)
	if err != nil {
		if extract.IsQuota(err) {
			return nil, err
		}
		var perr *extract.ParseError
		if errors.As(err, &perr) {
			fmt.Fprintf(a.warn, "warning: %s: malformed model response treated as no event\n", in.EmailID)
		} else {
			fmt.Fprintf(a.warn, "warning: %s: extraction failed: %v\n", in.EmailID, err)
		}
		return a.ignoredDecision(in, "extraction produced no usable result"), nil
	}

	if ext.Status == types.StatusIgnored {
		return a.ignoredDecision(in, ""), nil
	}

	decision := &types.EventDecision{
		ID:         uuid.NewString(),
		EmailID:    in.EmailID,
		Status:     types.StatusProcessed,
		EventType:  ext.EventType,
		EventTitle: ext.EventTitle,
		DateText:   ext.DateText,
	}

	resolved, ok := dateparse.Resolve(ext.DateText, in.ReceivedAt)
	if !ok && a.linker != nil && in.UserID != "" && in.Sender != "" {
		res, lerr := a.linker.Link(ctx, in.UserID, in.Sender, ext.DateText, in.ReceivedAt)
		if lerr != nil {
			// Linking is best-effort; a failed lookup leaves the date
			// unresolved.
			fmt.Fprintf(a.warn, "warning: %s: context lookup failed: %v\n", in.EmailID, lerr)
		}
		if res != nil {
			resolved, ok = res.Date, true
			decision.Reason = res.Reason
		}
	}

	if !ok {
		// A processed email without a resolvable date always asks the
		// user; it never silently downgrades to ignored.
		decision.Action = types.ActionNeedsConfirmation
		if decision.Reason == "" {
			decision.Reason = "could not resolve date"
		}
		return decision, nil
	}

	decision.ResolvedDate = &resolved
	decision.Action = ext.Action
	if decision.Action == "" || decision.Action == types.ActionIgnored {
		decision.Action = types.ActionAutoAdd
	}
	decision.Calendar = buildCalendarEvent(ext, resolved)

	return decision, nil
}

func (a *Agent) ignoredDecision(in types.EmailInput, reason string) *types.EventDecision {
	return &types.EventDecision{
		ID:      uuid.NewString(),
		EmailID: in.EmailID,
		Status:  types.StatusIgnored,
		Action:  types.ActionIgnored,
		Reason:  reason,
	}
}

// buildCalendarEvent assembles the payload the downstream calendar
// collaborator consumes verbatim. The description cites the original date
// text so the user can audit the resolution.
func buildCalendarEvent(ext *types.Extraction, start time.Time) *types.CalendarEvent {
	summary := ext.EventTitle
	if summary == "" {
		summary = "Event"
	}
	return &types.CalendarEvent{
		Summary:     summary,
		Description: fmt.Sprintf("Detected from email. Original text: %q", ext.DateText),
		Start:       types.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         types.EventDateTime{DateTime: start.Add(eventDuration).Format(time.RFC3339)},
		Reminders: types.ReminderSet{
			UseDefault: false,
			Overrides:  reminder.ForEvent(ext.EventType),
		},
	}
}
