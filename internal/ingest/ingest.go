// Package ingest loads local email record files into the history store.
// It is the pipeline's upstream seam: mailbox synchronization proper lives
// outside this repository and hands over YAML records of
// (message id, sender, received_at, body) shape.
// Implements: docs/ARCHITECTURE § Ingestion.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mail-agent/pkg/types"
)

// Store is the slice of the history store ingestion needs.
type Store interface {
	InsertEmail(ctx context.Context, rec *types.EmailRecord) (inserted bool, err error)
}

// Summary holds counts from one ingestion run.
type Summary struct {
	Ingested int
	Skipped  int
	Failed   int
}

// Total returns the number of files processed.
func (s Summary) Total() int {
	return s.Ingested + s.Skipped + s.Failed
}

// HasFailures reports whether any files failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// IngestDir loads every YAML email record in cfg.MailDir into the store.
// Records already present (same message id) are skipped, so re-running
// over a growing mail directory is cheap.
func IngestDir(ctx context.Context, store Store, cfg types.IngestConfig, userID string, w io.Writer) (Summary, error) {
	entries, err := os.ReadDir(cfg.MailDir)
	if err != nil {
		return Summary{}, fmt.Errorf("reading mail directory %s: %w", cfg.MailDir, err)
	}

	var summary Summary
	for _, entry := range entries {
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := filepath.Join(cfg.MailDir, entry.Name())
		inserted, err := IngestFile(ctx, store, path, userID)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
		case !inserted:
			fmt.Fprintf(w, "skipped %s (already ingested)\n", entry.Name())
			summary.Skipped++
		default:
			fmt.Fprintf(w, "ingested %s\n", entry.Name())
			summary.Ingested++
		}
	}

	fmt.Fprintf(w, "\ningested: %d, skipped: %d, failed: %d\n",
		summary.Ingested, summary.Skipped, summary.Failed)

	return summary, nil
}

// IngestFile loads a single email record file. The inserted return value
// is false when the record was already present.
func IngestFile(ctx context.Context, store Store, path, userID string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading record: %w", err)
	}

	var rec types.EmailRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return false, fmt.Errorf("parsing record: %w", err)
	}

	if rec.MessageID == "" {
		return false, fmt.Errorf("record has no message_id")
	}
	if rec.ReceivedAt.IsZero() {
		// Fall back to the file's mod time; it is stable across reruns,
		// unlike the wall clock.
		info, err := os.Stat(path)
		if err != nil {
			return false, fmt.Errorf("stat for received_at fallback: %w", err)
		}
		rec.ReceivedAt = info.ModTime()
		fmt.Fprintf(os.Stderr, "warning: %s: no received_at, using file mod time\n", filepath.Base(path))
	}

	rec.UserID = userID
	rec.ID = ""
	return store.InsertEmail(ctx, &rec)
}

func isRecordFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
