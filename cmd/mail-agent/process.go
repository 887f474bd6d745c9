// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mail-agent/internal/agent"
	"github.com/pdiddy/mail-agent/internal/extract"
	"github.com/pdiddy/mail-agent/internal/history"
	"github.com/pdiddy/mail-agent/internal/linker"
	"github.com/pdiddy/mail-agent/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Analyze pending emails and record event decisions",
	Long: `Process runs the event-detection pipeline over every unprocessed email
in the store, oldest first. Each email is analyzed once and stamped with
its decision; a model quota error aborts the run and leaves the remaining
emails pending, so the next invocation picks up where this one stopped.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().Int("limit", 0, "maximum emails to process (0 = all pending)")
	processCmd.Flags().Duration("delay", 0, "spacing between model calls (default from config)")
	processCmd.Flags().String("model", "", "model identifier override")
	processCmd.Flags().String("api-key", "", "model API key (default: .secrets/anthropic-api-key)")
	processCmd.Flags().Bool("dry-run", false, "analyze without recording decisions or marking emails processed")

	rootCmd.AddCommand(processCmd)
}

// dryRunStore reads pending emails normally but discards decisions, so a
// dry run leaves every email pending.
type dryRunStore struct {
	*history.Store
}

func (dryRunStore) RecordDecision(context.Context, string, *types.EventDecision, bool) error {
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	applyAgentFlags(cmd, &cfg)

	limit, _ := cmd.Flags().GetInt("limit")
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = cfg.Agent.ProcessDelay
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	a, err := buildAgent(cfg, store)
	if err != nil {
		return err
	}

	var batchStore agent.BatchStore = store
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Fprintln(os.Stdout, "Dry run: decisions will not be recorded.")
		batchStore = dryRunStore{store}
	}

	summary, err := a.ProcessBatch(context.Background(), batchStore, userID(cmd), limit, delay, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d email(s) failed analysis", summary.Failed)
	}
	return nil
}

// applyAgentFlags layers per-invocation overrides onto the config.
func applyAgentFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Agent.Model = model
	}
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		cfg.Agent.APIKey = key
	}
}

// buildAgent wires the extraction gateway and context linker. A nil store
// builds an agent without history linking (used by analyze).
func buildAgent(cfg types.PipelineConfig, store *history.Store) (*agent.Agent, error) {
	if cfg.Agent.APIKey == "" {
		return nil, fmt.Errorf("model API key required: set agent.api_key, --api-key, or .secrets/anthropic-api-key")
	}

	backend := &extract.ClaudeBackend{
		APIKey:     cfg.Agent.APIKey,
		Model:      cfg.Agent.Model,
		MaxRetries: cfg.Agent.MaxRetries,
		Client:     &http.Client{Timeout: cfg.HTTP.Timeout},
	}
	gateway := extract.New(backend, cfg.Agent.MaxBodyChars)

	opts := []agent.Option{agent.WithWarnWriter(os.Stderr)}
	if store != nil {
		window := time.Duration(cfg.History.LinkWindowDays) * 24 * time.Hour
		opts = append(opts, agent.WithLinker(linker.New(store, window)))
	}
	return agent.New(gateway, opts...), nil
}
