// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package linker borrows dates from historical events when direct
// resolution fails. A phrase like "before the meeting" carries no parseable
// date, but the nearest upcoming meeting from the same sender usually is
// the one meant. Linking is best-effort: lookup failures degrade to
// "unresolved", never abort the run.
package linker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/mail-agent/pkg/types"
)

// HistoryReader is the read interface into the email history store.
// *history.Store satisfies it; tests supply fakes.
type HistoryReader interface {
	FindFirstUpcoming(ctx context.Context, userID, sender, categoryLike string, after time.Time, window time.Duration) (*types.HistoricalEvent, error)
}

// contextKeywords are the category hints scanned for in an unresolved
// date phrase, in match order.
var contextKeywords = []string{"meeting", "exam", "submission", "deadline"}

// Window is the default lookahead horizon for borrowed dates.
const Window = 10 * 24 * time.Hour

// Linker resolves date phrases by reference to stored history.
type Linker struct {
	reader HistoryReader
	window time.Duration
}

// New builds a Linker over a history reader. A zero window uses the
// default ten-day horizon.
func New(reader HistoryReader, window time.Duration) *Linker {
	if window <= 0 {
		window = Window
	}
	return &Linker{reader: reader, window: window}
}

// Result is a successful link: the borrowed date and a human-readable
// reason citing the linked event.
type Result struct {
	Date   time.Time
	Reason string
}

// Link scans dateText for a category keyword and looks up the nearest
// future event of that category from the same sender. It returns nil when
// no keyword is found, no event matches, or the lookup errors; the error
// return is informational only and safe to log-and-drop.
func (l *Linker) Link(ctx context.Context, userID, sender, dateText string, ref time.Time) (*Result, error) {
	keyword := matchKeyword(dateText)
	if keyword == "" {
		return nil, nil
	}

	ev, err := l.reader.FindFirstUpcoming(ctx, userID, sender, keyword, ref, l.window)
	if err != nil {
		return nil, fmt.Errorf("context lookup for %q: %w", keyword, err)
	}
	if ev == nil {
		return nil, nil
	}

	return &Result{
		Date:   ev.EventDate,
		Reason: fmt.Sprintf("Resolved via context: linked to %q", ev.Subject),
	}, nil
}

// matchKeyword returns the first context keyword present in text,
// normalized to its category ("submission" counts as "deadline").
func matchKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, k := range contextKeywords {
		if strings.Contains(lower, k) {
			if k == "submission" {
				return "deadline"
			}
			return k
		}
	}
	return ""
}
