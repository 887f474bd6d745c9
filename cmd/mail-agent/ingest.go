package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mail-agent/internal/history"
	"github.com/pdiddy/mail-agent/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Load email record files into the history store",
	Long: `Ingest reads YAML email records into the local store. With no
arguments it sweeps the configured mail directory; with file arguments it
loads exactly those records. Records already present (same message id per
user) are skipped, so re-running over a growing directory is cheap.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("mail-dir", "", "directory of email records (default from config)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	if mailDir, _ := cmd.Flags().GetString("mail-dir"); mailDir != "" {
		cfg.Ingest.MailDir = mailDir
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	user := userID(cmd)

	if len(args) > 0 {
		failed := 0
		for _, path := range args {
			inserted, err := ingest.IngestFile(ctx, store, path, user)
			switch {
			case err != nil:
				fmt.Fprintf(os.Stdout, "failed  %s: %v\n", path, err)
				failed++
			case !inserted:
				fmt.Fprintf(os.Stdout, "skipped %s (already ingested)\n", path)
			default:
				fmt.Fprintf(os.Stdout, "ingested %s\n", path)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d record(s) failed ingestion", failed)
		}
		return nil
	}

	summary, err := ingest.IngestDir(ctx, store, cfg.Ingest, user, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) failed ingestion", summary.Failed)
	}
	return nil
}
