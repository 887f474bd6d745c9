// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mail-agent CLI.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mail-agent/internal/secrets"
	"github.com/pdiddy/mail-agent/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the mail-agent CLI.
var rootCmd = &cobra.Command{
	Use:   "mail-agent",
	Short: "Calendar event detection for email",
	Long: `mail-agent turns emails into calendar event decisions. A hosted model
extracts the event signal (type, title, date phrase); everything after the
extraction is deterministic: date phrases resolve against the email's
received time, unresolvable phrases borrow dates from recent history, and
each email ends as auto-add, needs-confirmation, or ignored.

Each stage is a subcommand: ingest loads email records into the local
store, process analyzes pending emails in order, analyze runs one record
without touching the store, and history inspects past decisions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mail-agent.yaml or ~/.config/mail-agent/config.yaml)")
	rootCmd.PersistentFlags().String("user", "default", "mailbox owner id scoping store reads and writes")
	rootCmd.PersistentFlags().String("db", "", "history database path (default from config)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mail-agent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mail-agent"))
		}
	}

	viper.SetEnvPrefix("MAIL_AGENT")
	viper.AutomaticEnv()

	viper.SetDefault("agent.model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("agent.max_retries", 3)
	viper.SetDefault("agent.process_delay", 5*time.Second)
	viper.SetDefault("agent.max_body_chars", 4000)
	viper.SetDefault("history.db_path", filepath.Join("mail", "index", "mail-agent.db"))
	viper.SetDefault("history.link_window_days", 10)
	viper.SetDefault("ingest.mail_dir", filepath.Join("mail", "inbox"))
	viper.SetDefault("http.timeout", 60*time.Second)
	viper.SetDefault("http.user_agent", "mail-agent/0.1")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration from viper, layering
// the shared --db flag on top. The API key resolves
// flag > config > .secrets/anthropic-api-key.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.PipelineConfig{
		Agent: types.AgentConfig{
			AIConfig: types.AIConfig{
				Model:      viper.GetString("agent.model"),
				APIKey:     secretDefault(secrets.AnthropicAPIKey, viper.GetString("agent.api_key")),
				MaxRetries: viper.GetInt("agent.max_retries"),
			},
			ProcessDelay: viper.GetDuration("agent.process_delay"),
			MaxBodyChars: viper.GetInt("agent.max_body_chars"),
		},
		History: types.HistoryConfig{
			DBPath:         viper.GetString("history.db_path"),
			LinkWindowDays: viper.GetInt("history.link_window_days"),
		},
		Ingest: types.IngestConfig{
			MailDir: viper.GetString("ingest.mail_dir"),
		},
		HTTP: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
		},
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.History.DBPath = dbPath
	}
	return cfg
}

func userID(cmd *cobra.Command) string {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = "default"
	}
	return user
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
