package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mail-agent/internal/history"
	"github.com/pdiddy/mail-agent/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [record.yaml]",
	Short: "Analyze a single email record without writing to the store",
	Long: `Analyze runs the event-detection pipeline over one email and prints
the decision. The email is a YAML record file, or a raw body on stdin
when the argument is "-" or omitted (--received-at is then required).
Nothing is written to the history store; with --db the store is opened
read-only for context linking, otherwise linking is skipped.

Flags can override record fields, which makes analyze usable for probing
date phrases: put the phrase in a minimal record and vary --received-at.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("model", "", "model identifier override")
	analyzeCmd.Flags().String("api-key", "", "model API key (default: .secrets/anthropic-api-key)")
	analyzeCmd.Flags().String("received-at", "", "override the record's received_at (RFC 3339)")
	analyzeCmd.Flags().String("sender", "", "override the record's sender")
	analyzeCmd.Flags().String("email-id", "", "override the record's message id")
	analyzeCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(analyzeCmd)
}

// readAnalyzeRecord assembles the email record from the file argument or
// from a raw stdin body, then layers the override flags on top.
func readAnalyzeRecord(cmd *cobra.Command, args []string, stdin io.Reader) (types.EmailRecord, error) {
	var rec types.EmailRecord

	if len(args) == 0 || args[0] == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return rec, fmt.Errorf("reading body from stdin: %w", err)
		}
		rec.Body = string(body)
	} else {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return rec, fmt.Errorf("reading record: %w", err)
		}
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return rec, fmt.Errorf("parsing record: %w", err)
		}
	}

	if ts, _ := cmd.Flags().GetString("received-at"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return rec, fmt.Errorf("parsing --received-at: %w", err)
		}
		rec.ReceivedAt = t
	}
	if sender, _ := cmd.Flags().GetString("sender"); sender != "" {
		rec.Sender = sender
	}
	if id, _ := cmd.Flags().GetString("email-id"); id != "" {
		rec.MessageID = id
	}
	if rec.ReceivedAt.IsZero() {
		return rec, fmt.Errorf("no received_at; date resolution needs a reference instant (set --received-at)")
	}
	return rec, nil
}

// openAnalyzeStore opens the history store only when --db was given;
// without it analyze stays store-free and context linking is skipped.
func openAnalyzeStore(cmd *cobra.Command, cfg types.PipelineConfig) (*history.Store, error) {
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath == "" {
		return nil, nil
	}
	return history.NewStore(cfg.History)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	applyAgentFlags(cmd, &cfg)

	rec, err := readAnalyzeRecord(cmd, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	store, err := openAnalyzeStore(cmd, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	a, err := buildAgent(cfg, store)
	if err != nil {
		return err
	}

	body := rec.Body
	if rec.AttachmentText != "" {
		body = body + "\n\n[Attachment PDF Content]:\n" + rec.AttachmentText
	}

	in := types.EmailInput{
		EmailID:    rec.MessageID,
		Sender:     rec.Sender,
		Subject:    rec.Subject,
		Body:       body,
		ReceivedAt: rec.ReceivedAt,
	}
	if store != nil {
		in.UserID = userID(cmd)
	}

	decision, err := a.Analyze(context.Background(), in)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json", "":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(decision)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(decision)
	default:
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}
}
