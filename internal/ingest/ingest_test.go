// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/mail-agent/pkg/types"
)

type fakeStore struct {
	seen    map[string]bool
	records []*types.EmailRecord
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (s *fakeStore) InsertEmail(_ context.Context, rec *types.EmailRecord) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	key := rec.UserID + "/" + rec.MessageID
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	s.records = append(s.records, rec)
	return true, nil
}

func writeRecord(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

const sampleRecord = `message_id: msg-001
sender: prof@university.edu
subject: Final exam schedule
received_at: 2026-01-29T10:00:00Z
body: |
  The Mathematics final exam is on Feb 12th at 9am.
`

func TestIngestDirCounts(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "a.yaml", sampleRecord)
	writeRecord(t, dir, "b.yml", strings.ReplaceAll(sampleRecord, "msg-001", "msg-002"))
	writeRecord(t, dir, "broken.yaml", "message_id: [unterminated")
	writeRecord(t, dir, "notes.txt", "not a record")

	store := newFakeStore()
	var out bytes.Buffer
	summary, err := IngestDir(context.Background(), store, types.IngestConfig{MailDir: dir}, "user-1", &out)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}

	if summary.Ingested != 2 || summary.Skipped != 0 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 2 ingested, 0 skipped, 1 failed", summary)
	}
	if summary.Total() != 3 {
		t.Errorf("Total() = %d, want 3", summary.Total())
	}
	if !summary.HasFailures() {
		t.Error("HasFailures() = false, want true")
	}
	if !strings.Contains(out.String(), "failed  broken.yaml") {
		t.Errorf("output missing failure line:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "ingested: 2, skipped: 0, failed: 1") {
		t.Errorf("output missing summary line:\n%s", out.String())
	}
}

func TestIngestDirSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "a.yaml", sampleRecord)

	store := newFakeStore()
	ctx := context.Background()
	cfg := types.IngestConfig{MailDir: dir}

	if _, err := IngestDir(ctx, store, cfg, "user-1", &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := IngestDir(ctx, store, cfg, "user-1", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.Ingested != 0 || summary.Skipped != 1 {
		t.Errorf("second run summary = %+v, want 0 ingested, 1 skipped", summary)
	}
}

func TestIngestFileFields(t *testing.T) {
	dir := t.TempDir()
	path := writeRecord(t, dir, "a.yaml", `message_id: msg-003
sender: hr@corp.example
recipient: me@corp.example
subject: Project submission
received_at: 2026-02-01T08:30:00Z
body: Submit by Friday.
attachment_text: Detailed rubric.
`)

	store := newFakeStore()
	inserted, err := IngestFile(context.Background(), store, path, "user-7")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if !inserted {
		t.Fatal("inserted = false, want true")
	}

	rec := store.records[0]
	if rec.UserID != "user-7" {
		t.Errorf("UserID = %q, want user-7", rec.UserID)
	}
	if rec.MessageID != "msg-003" {
		t.Errorf("MessageID = %q", rec.MessageID)
	}
	if rec.AttachmentText != "Detailed rubric." {
		t.Errorf("AttachmentText = %q", rec.AttachmentText)
	}
	want := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	if !rec.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", rec.ReceivedAt, want)
	}
}

func TestIngestFileMissingMessageID(t *testing.T) {
	dir := t.TempDir()
	path := writeRecord(t, dir, "a.yaml", "sender: x@y.z\nbody: hi\n")

	_, err := IngestFile(context.Background(), newFakeStore(), path, "user-1")
	if err == nil || !strings.Contains(err.Error(), "message_id") {
		t.Fatalf("err = %v, want missing message_id error", err)
	}
}

func TestIngestFileReceivedAtFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeRecord(t, dir, "a.yaml", "message_id: msg-004\nsender: x@y.z\nbody: hi\n")
	modTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	store := newFakeStore()
	if _, err := IngestFile(context.Background(), store, path, "user-1"); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if !store.records[0].ReceivedAt.Equal(modTime) {
		t.Errorf("ReceivedAt = %v, want file mod time %v", store.records[0].ReceivedAt, modTime)
	}
}

func TestIngestDirStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeRecord(t, dir, fmt.Sprintf("m%d.yaml", i),
			strings.ReplaceAll(sampleRecord, "msg-001", fmt.Sprintf("msg-%d", i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := IngestDir(ctx, newFakeStore(), types.IngestConfig{MailDir: dir}, "user-1", &bytes.Buffer{})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
