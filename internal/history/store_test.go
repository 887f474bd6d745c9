package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/mail-agent/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.HistoryConfig{
		DBPath:         filepath.Join(t.TempDir(), "mail-agent.db"),
		LinkWindowDays: 10,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsert(t *testing.T, s *Store, rec types.EmailRecord) string {
	t.Helper()
	inserted, err := s.InsertEmail(context.Background(), &rec)
	if err != nil {
		t.Fatalf("InsertEmail: %v", err)
	}
	if !inserted {
		t.Fatalf("InsertEmail(%s): expected insert, got skip", rec.MessageID)
	}
	return rec.ID
}

var ref = time.Date(2026, time.January, 29, 10, 0, 0, 0, time.UTC)

func TestInsertEmail_DedupByMessageID(t *testing.T) {
	s := testStore(t)

	rec := types.EmailRecord{
		MessageID:  "msg-1",
		UserID:     "u1",
		Sender:     "prof@example.edu",
		Subject:    "Exam schedule",
		Body:       "Exam next Friday",
		ReceivedAt: ref,
	}
	mustInsert(t, s, rec)

	again := rec
	again.ID = ""
	inserted, err := s.InsertEmail(context.Background(), &again)
	if err != nil {
		t.Fatalf("InsertEmail (second): %v", err)
	}
	if inserted {
		t.Error("second insert of the same message id should be skipped")
	}

	// Same message id for another user is a distinct record.
	other := rec
	other.ID = ""
	other.UserID = "u2"
	inserted, err = s.InsertEmail(context.Background(), &other)
	if err != nil {
		t.Fatalf("InsertEmail (other user): %v", err)
	}
	if !inserted {
		t.Error("same message id under a different user should insert")
	}
}

func TestPending_OrderAndProcessedStamp(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	late := mustInsert(t, s, types.EmailRecord{
		MessageID: "m-late", UserID: "u1", Sender: "a@x", ReceivedAt: ref.Add(2 * time.Hour),
	})
	early := mustInsert(t, s, types.EmailRecord{
		MessageID: "m-early", UserID: "u1", Sender: "a@x", ReceivedAt: ref,
	})

	pending, err := s.Pending(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Pending returned %d records, want 2", len(pending))
	}
	if pending[0].ID != early || pending[1].ID != late {
		t.Errorf("Pending order = [%s, %s], want oldest first", pending[0].MessageID, pending[1].MessageID)
	}

	decision := &types.EventDecision{Status: types.StatusIgnored, Action: types.ActionIgnored}
	if err := s.RecordDecision(ctx, early, decision, true); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	pending, err = s.Pending(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("Pending after stamp: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != late {
		t.Errorf("processed email still pending: %+v", pending)
	}
}

func TestInsertEmail_AttachmentTextRoundTrip(t *testing.T) {
	s := testStore(t)

	mustInsert(t, s, types.EmailRecord{
		MessageID:      "msg-att",
		UserID:         "u1",
		Sender:         "prof@example.edu",
		Subject:        "Syllabus",
		Body:           "See attachment.",
		AttachmentText: "Final exam on 12th Feb.",
		ReceivedAt:     ref,
	})

	pending, err := s.Pending(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Pending returned %d records, want 1", len(pending))
	}
	if pending[0].AttachmentText != "Final exam on 12th Feb." {
		t.Errorf("AttachmentText = %q, want attachment content", pending[0].AttachmentText)
	}
}

func TestRecordDecision_KeepsPendingWhenNotMarked(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id := mustInsert(t, s, types.EmailRecord{
		MessageID: "m-1", UserID: "u1", Sender: "a@x", ReceivedAt: ref,
	})

	d := &types.EventDecision{
		Status: types.StatusProcessed,
		Action: types.ActionNeedsConfirmation,
		Reason: "could not resolve date",
	}
	if err := s.RecordDecision(ctx, id, d, false); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	pending, err := s.Pending(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("email marked processed despite markProcessed=false")
	}
}

func TestFindFirstUpcoming(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	insertEvent := func(msgID, userID, sender, category string, eventDate time.Time) {
		id := mustInsert(t, s, types.EmailRecord{
			MessageID: msgID, UserID: userID, Sender: sender, Subject: "subj " + msgID, ReceivedAt: ref.Add(-24 * time.Hour),
		})
		d := &types.EventDecision{
			Status:       types.StatusProcessed,
			EventType:    types.EventType(category),
			EventTitle:   "event " + msgID,
			ResolvedDate: &eventDate,
			Action:       types.ActionAutoAdd,
		}
		if err := s.RecordDecision(ctx, id, d, true); err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
	}

	sender := "prof@example.edu"
	insertEvent("nearest", "u1", sender, "exam", ref.Add(48*time.Hour))
	insertEvent("later", "u1", sender, "exam", ref.Add(96*time.Hour))
	insertEvent("too-far", "u1", sender, "exam", ref.Add(11*24*time.Hour))
	insertEvent("past", "u1", sender, "exam", ref.Add(-time.Hour))
	insertEvent("other-sender", "u1", "dean@example.edu", "exam", ref.Add(24*time.Hour))
	insertEvent("other-category", "u1", sender, "meeting", ref.Add(24*time.Hour))

	got, err := s.FindFirstUpcoming(ctx, "u1", sender, "exam", ref, 0)
	if err != nil {
		t.Fatalf("FindFirstUpcoming: %v", err)
	}
	if got == nil {
		t.Fatal("FindFirstUpcoming returned no match")
	}
	if got.Subject != "subj nearest" {
		t.Errorf("matched %q, want nearest event", got.Subject)
	}
	if !got.EventDate.Equal(ref.Add(48 * time.Hour)) {
		t.Errorf("EventDate = %v, want %v", got.EventDate, ref.Add(48*time.Hour))
	}

	// Case-insensitive substring category match.
	got, err = s.FindFirstUpcoming(ctx, "u1", sender, "EXAM", ref, 0)
	if err != nil || got == nil {
		t.Fatalf("case-insensitive lookup failed: %v, %v", got, err)
	}

	// No match outside the sender scope.
	got, err = s.FindFirstUpcoming(ctx, "u1", "nobody@example.edu", "exam", ref, 0)
	if err != nil {
		t.Fatalf("FindFirstUpcoming: %v", err)
	}
	if got != nil {
		t.Errorf("unexpected match for unknown sender: %+v", got)
	}
}

func TestFindFirstUpcoming_WindowBoundary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	insert := func(msgID string, eventDate time.Time) {
		id := mustInsert(t, s, types.EmailRecord{
			MessageID: msgID, UserID: "u1", Sender: "a@x", Subject: msgID, ReceivedAt: ref.Add(-time.Hour),
		})
		d := &types.EventDecision{
			Status: types.StatusProcessed, EventType: types.EventDeadline,
			ResolvedDate: &eventDate, Action: types.ActionAutoAdd,
		}
		if err := s.RecordDecision(ctx, id, d, true); err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
	}

	// Exactly at the reference instant: excluded (strictly after).
	insert("at-ref", ref)
	// Exactly ten days out: included (inclusive upper bound).
	insert("at-limit", ref.Add(10*24*time.Hour))

	got, err := s.FindFirstUpcoming(ctx, "u1", "a@x", "deadline", ref, 0)
	if err != nil {
		t.Fatalf("FindFirstUpcoming: %v", err)
	}
	if got == nil || got.Subject != "at-limit" {
		t.Errorf("got %+v, want the at-limit event", got)
	}
}

func TestUpcomingEvents_Filters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	insert := func(msgID, sender, category string, eventDate time.Time) {
		id := mustInsert(t, s, types.EmailRecord{
			MessageID: msgID, UserID: "u1", Sender: sender, Subject: msgID, ReceivedAt: ref.Add(-time.Hour),
		})
		d := &types.EventDecision{
			Status: types.StatusProcessed, EventType: types.EventType(category),
			ResolvedDate: &eventDate, Action: types.ActionAutoAdd,
		}
		if err := s.RecordDecision(ctx, id, d, true); err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
	}

	insert("e1", "a@x", "exam", ref.Add(24*time.Hour))
	insert("e2", "a@x", "deadline", ref.Add(48*time.Hour))
	insert("e3", "b@x", "exam", ref.Add(72*time.Hour))

	all, err := s.UpcomingEvents(ctx, QueryOptions{UserID: "u1", After: ref})
	if err != nil {
		t.Fatalf("UpcomingEvents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("UpcomingEvents returned %d, want 3", len(all))
	}
	if all[0].Subject != "e1" || all[2].Subject != "e3" {
		t.Errorf("events not in ascending date order: %+v", all)
	}

	exams, err := s.UpcomingEvents(ctx, QueryOptions{UserID: "u1", After: ref, Category: "exam"})
	if err != nil {
		t.Fatalf("UpcomingEvents(category): %v", err)
	}
	if len(exams) != 2 {
		t.Errorf("category filter returned %d, want 2", len(exams))
	}

	fromA, err := s.UpcomingEvents(ctx, QueryOptions{UserID: "u1", After: ref, Sender: "a@x", Limit: 1})
	if err != nil {
		t.Fatalf("UpcomingEvents(sender): %v", err)
	}
	if len(fromA) != 1 || fromA[0].Subject != "e1" {
		t.Errorf("sender+limit filter = %+v, want just e1", fromA)
	}
}
