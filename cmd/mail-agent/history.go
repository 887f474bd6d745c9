// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mail-agent/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past event decisions",
	Long: `History reads the local store built by ingest and process. Use
subcommands to list upcoming events.`,
}

var historyUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List resolved events inside the context-linking window",
	Long: `Upcoming lists resolved events ahead of a reference instant, soonest
first. This is the same read model the context linker consumes when it
borrows a date for an unresolvable phrase, exposed for inspection.`,
	RunE: runHistoryUpcoming,
}

func runHistoryUpcoming(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	sender, _ := cmd.Flags().GetString("sender")
	category, _ := cmd.Flags().GetString("category")
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")

	after := time.Now()
	if ts, _ := cmd.Flags().GetString("after"); ts != "" {
		after, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return fmt.Errorf("parsing --after: %w", err)
		}
	}

	opts := history.QueryOptions{
		UserID:   userID(cmd),
		Sender:   sender,
		Category: category,
		After:    after,
		Limit:    limit,
	}
	if days > 0 {
		opts.Window = time.Duration(days) * 24 * time.Hour
	}

	events, err := store.UpcomingEvents(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	if len(events) == 0 {
		fmt.Println("No upcoming events.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-10s  %-30s  %s\n", "Date", "Category", "Sender", "Subject")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, ev := range events {
		sender := ev.Sender
		if len(sender) > 30 {
			sender = sender[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-10s  %-30s  %s\n",
			ev.EventDate.Format("2006-01-02 15:04"), ev.Category, sender, ev.Subject)
	}
	fmt.Fprintf(os.Stdout, "\n%d event(s)\n", len(events))
	return nil
}

func init() {
	historyUpcomingCmd.Flags().String("sender", "", "filter by sender address")
	historyUpcomingCmd.Flags().String("category", "", "filter by event category (substring match)")
	historyUpcomingCmd.Flags().String("after", "", "reference instant (RFC 3339, default: now)")
	historyUpcomingCmd.Flags().Int("days", 0, "look-ahead window in days (default: link window from config)")
	historyUpcomingCmd.Flags().Int("limit", 0, "maximum events to list (0 = all)")
	historyUpcomingCmd.Flags().Bool("json", false, "output events as JSON")

	historyCmd.AddCommand(historyUpcomingCmd)
	rootCmd.AddCommand(historyCmd)
}
