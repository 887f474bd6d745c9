// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists email records and their analysis outcomes in a
// local SQLite database. It is the pipeline's only read model: the batch
// runner pulls pending emails from it, the context linker borrows dates
// from it, and decisions are written back to it.
// See docs/ARCHITECTURE § History Store.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mail-agent/pkg/types"
)

const defaultLinkWindowDays = 10

// Store manages the email history SQLite database.
type Store struct {
	db         *sql.DB
	linkWindow time.Duration
}

// NewStore opens or creates the history database at cfg.DBPath, creating
// the schema on first use.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("history: db path not configured")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	windowDays := cfg.LinkWindowDays
	if windowDays <= 0 {
		windowDays = defaultLinkWindowDays
	}

	s := &Store{
		db:         db,
		linkWindow: time.Duration(windowDays) * 24 * time.Hour,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LinkWindow is the configured horizon for context-linking lookups.
func (s *Store) LinkWindow() time.Duration {
	return s.linkWindow
}

// Timestamps are stored as RFC 3339 UTC strings so lexicographic order is
// chronological order.
func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS emails (
			id TEXT PRIMARY KEY,
			message_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			sender TEXT,
			recipient TEXT,
			subject TEXT,
			body TEXT,
			attachment_text TEXT,
			received_at TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			event_title TEXT,
			event_date TEXT,
			category TEXT,
			action TEXT,
			reason TEXT,
			calendar_json TEXT,
			UNIQUE(user_id, message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_processed ON emails(processed)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_sender ON emails(sender)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_event_date ON emails(event_date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// InsertEmail stores a new email record. Records already present (same
// user and message id) are skipped; the inserted return value reports
// whether a row was written. A missing record ID is assigned.
func (s *Store) InsertEmail(ctx context.Context, rec *types.EmailRecord) (inserted bool, err error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO emails
			(id, message_id, user_id, sender, recipient, subject, body, attachment_text, received_at, processed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.MessageID, rec.UserID, rec.Sender, rec.Recipient,
		rec.Subject, rec.Body, rec.AttachmentText, rec.ReceivedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("inserting email %s: %w", rec.MessageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Pending returns unprocessed emails for a user, oldest first. A limit of
// zero returns all pending emails.
func (s *Store) Pending(ctx context.Context, userID string, limit int) ([]types.EmailRecord, error) {
	q := `SELECT id, message_id, user_id, sender, recipient, subject, body, attachment_text, received_at
	      FROM emails WHERE processed = 0 AND user_id = ?
	      ORDER BY received_at ASC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pending emails: %w", err)
	}
	defer rows.Close()

	var out []types.EmailRecord
	for rows.Next() {
		var rec types.EmailRecord
		var receivedAt string
		if err := rows.Scan(&rec.ID, &rec.MessageID, &rec.UserID, &rec.Sender,
			&rec.Recipient, &rec.Subject, &rec.Body, &rec.AttachmentText, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning email row: %w", err)
		}
		rec.ReceivedAt, err = time.Parse(time.RFC3339, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing received_at for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindFirstUpcoming returns the nearest historical event for the given
// user and sender whose category matches categoryLike (case-insensitive
// substring) and whose date falls strictly after `after` but within
// `window`. Nil without error means no match. Satisfies the context
// linker's HistoryReader.
func (s *Store) FindFirstUpcoming(ctx context.Context, userID, sender, categoryLike string, after time.Time, window time.Duration) (*types.HistoricalEvent, error) {
	if window <= 0 {
		window = s.linkWindow
	}
	limit := after.Add(window)

	row := s.db.QueryRowContext(ctx,
		`SELECT category, sender, subject, event_date
		 FROM emails
		 WHERE user_id = ?
		   AND sender = ?
		   AND category LIKE '%' || ? || '%' COLLATE NOCASE
		   AND event_date IS NOT NULL
		   AND event_date > ?
		   AND event_date <= ?
		 ORDER BY event_date ASC
		 LIMIT 1`,
		userID, sender, categoryLike,
		after.UTC().Format(time.RFC3339), limit.UTC().Format(time.RFC3339),
	)

	var ev types.HistoricalEvent
	var eventDate string
	err := row.Scan(&ev.Category, &ev.Sender, &ev.Subject, &eventDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying upcoming events: %w", err)
	}
	ev.EventDate, err = time.Parse(time.RFC3339, eventDate)
	if err != nil {
		return nil, fmt.Errorf("parsing event_date: %w", err)
	}
	return &ev, nil
}

// RecordDecision writes a pipeline decision back onto the email row and,
// when markProcessed is set, stamps the email as processed. Quota-aborted
// runs never reach this call, so those emails stay pending.
func (s *Store) RecordDecision(ctx context.Context, emailID string, d *types.EventDecision, markProcessed bool) error {
	var eventDate any
	if d.ResolvedDate != nil {
		eventDate = d.ResolvedDate.UTC().Format(time.RFC3339)
	}

	var calendarJSON any
	if d.Calendar != nil {
		data, err := json.Marshal(d.Calendar)
		if err != nil {
			return fmt.Errorf("marshaling calendar payload: %w", err)
		}
		calendarJSON = string(data)
	}

	processed := 0
	if markProcessed {
		processed = 1
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE emails SET
			event_title = ?, event_date = ?, category = ?,
			action = ?, reason = ?, calendar_json = ?, processed = ?
		 WHERE id = ?`,
		d.EventTitle, eventDate, string(d.EventType),
		string(d.Action), d.Reason, calendarJSON, processed, emailID,
	)
	if err != nil {
		return fmt.Errorf("recording decision for %s: %w", emailID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recording decision: no email with id %s", emailID)
	}
	return nil
}

// QueryOptions filters UpcomingEvents.
type QueryOptions struct {
	UserID   string
	Sender   string
	Category string
	After    time.Time
	Window   time.Duration
	Limit    int
}

// UpcomingEvents lists resolved events inside the window, soonest first.
// This is the same read model the context linker consumes, exposed for
// CLI inspection.
func (s *Store) UpcomingEvents(ctx context.Context, opts QueryOptions) ([]types.HistoricalEvent, error) {
	window := opts.Window
	if window <= 0 {
		window = s.linkWindow
	}
	limitDate := opts.After.Add(window)

	q := `SELECT category, sender, subject, event_date
	      FROM emails
	      WHERE user_id = ? AND event_date IS NOT NULL AND event_date > ? AND event_date <= ?`
	args := []any{opts.UserID, opts.After.UTC().Format(time.RFC3339), limitDate.UTC().Format(time.RFC3339)}

	if opts.Sender != "" {
		q += ` AND sender = ?`
		args = append(args, opts.Sender)
	}
	if opts.Category != "" {
		q += ` AND category LIKE '%' || ? || '%' COLLATE NOCASE`
		args = append(args, opts.Category)
	}
	q += ` ORDER BY event_date ASC`
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming events: %w", err)
	}
	defer rows.Close()

	var out []types.HistoricalEvent
	for rows.Next() {
		var ev types.HistoricalEvent
		var eventDate string
		if err := rows.Scan(&ev.Category, &ev.Sender, &ev.Subject, &eventDate); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		ev.EventDate, err = time.Parse(time.RFC3339, eventDate)
		if err != nil {
			return nil, fmt.Errorf("parsing event_date: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
