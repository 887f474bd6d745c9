// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/mail-agent/internal/extract"
	"github.com/pdiddy/mail-agent/pkg/types"
)

// BatchStore is the slice of the history store the batch runner needs.
type BatchStore interface {
	Pending(ctx context.Context, userID string, limit int) ([]types.EmailRecord, error)
	RecordDecision(ctx context.Context, emailID string, d *types.EventDecision, markProcessed bool) error
}

// BatchSummary holds counts from one batch run.
type BatchSummary struct {
	AutoAdded         int
	NeedsConfirmation int
	Ignored           int
	Failed            int
}

// Total returns the number of emails processed.
func (s BatchSummary) Total() int {
	return s.AutoAdded + s.NeedsConfirmation + s.Ignored + s.Failed
}

// ProcessBatch analyzes all pending emails for a user, oldest first, and
// records each decision. Model calls are spaced by delay — a cooperative
// throttle for the hosted-model rate limit; the batch never holds
// parallel in-flight calls.
//
// A quota error aborts the batch and is returned to the caller; the email
// that hit it (and everything after it) stays pending for a later pass.
// Any other per-email failure is counted and the batch continues.
func (a *Agent) ProcessBatch(ctx context.Context, store BatchStore, userID string, limit int, delay time.Duration, w io.Writer) (BatchSummary, error) {
	pending, err := store.Pending(ctx, userID, limit)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("listing pending emails: %w", err)
	}

	var summary BatchSummary

	for i, rec := range pending {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(delay):
			}
		}

		body := rec.Body
		if rec.AttachmentText != "" {
			body = body + "\n\n[Attachment PDF Content]:\n" + rec.AttachmentText
		}

		decision, err := a.Analyze(ctx, types.EmailInput{
			EmailID:    rec.ID,
			Sender:     rec.Sender,
			Subject:    rec.Subject,
			Body:       body,
			ReceivedAt: rec.ReceivedAt,
			UserID:     rec.UserID,
		})
		if err != nil {
			if errors.Is(err, extract.ErrQuotaExceeded) || extract.IsQuota(err) {
				fmt.Fprintf(w, "quota exhausted at %s; %d email(s) left pending\n",
					rec.MessageID, len(pending)-i)
				return summary, err
			}
			fmt.Fprintf(w, "failed  %s: %v\n", rec.MessageID, err)
			summary.Failed++
			continue
		}

		if err := store.RecordDecision(ctx, rec.ID, decision, true); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rec.MessageID, err)
			summary.Failed++
			continue
		}

		switch decision.Action {
		case types.ActionAutoAdd:
			summary.AutoAdded++
			fmt.Fprintf(w, "event   %s: %s on %s\n", rec.MessageID,
				decision.EventTitle, decision.ResolvedDate.Format("2006-01-02 15:04"))
		case types.ActionNeedsConfirmation:
			summary.NeedsConfirmation++
			fmt.Fprintf(w, "confirm %s: %s (%s)\n", rec.MessageID, decision.EventTitle, decision.Reason)
		default:
			summary.Ignored++
			fmt.Fprintf(w, "ignored %s\n", rec.MessageID)
		}
	}

	fmt.Fprintf(w, "\nevents: %d, needs confirmation: %d, ignored: %d, failed: %d\n",
		summary.AutoAdded, summary.NeedsConfirmation, summary.Ignored, summary.Failed)

	return summary, nil
}
