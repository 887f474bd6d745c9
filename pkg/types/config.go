package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "mail-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for the hosted-model call.
type AIConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API
	// calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AgentConfig holds settings for the event-detection pipeline.
type AgentConfig struct {
	AIConfig `yaml:",inline"`

	// ProcessDelay is the minimum spacing between model invocations in a
	// batch run (default 5s). A cooperative throttle for the hosted-model
	// rate limit; batch runs never hold parallel in-flight calls.
	ProcessDelay time.Duration `json:"process_delay" yaml:"process_delay"`

	// MaxBodyChars truncates email bodies before the model call to
	// protect payload size (default 4000). Zero disables truncation.
	MaxBodyChars int `json:"max_body_chars" yaml:"max_body_chars"`
}

// HistoryConfig holds settings for the email history store.
type HistoryConfig struct {
	// DBPath is the SQLite database path (default "mail/index/mail-agent.db").
	DBPath string `json:"db_path" yaml:"db_path"`

	// LinkWindowDays bounds how far ahead the context linker may borrow a
	// date from a historical event (default 10).
	LinkWindowDays int `json:"link_window_days" yaml:"link_window_days"`
}

// IngestConfig holds settings for local email ingestion.
type IngestConfig struct {
	// MailDir is the directory of YAML email records to ingest
	// (default "mail/inbox").
	MailDir string `json:"mail_dir" yaml:"mail_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Agent   AgentConfig   `json:"agent" yaml:"agent"`
	History HistoryConfig `json:"history" yaml:"history"`
	Ingest  IngestConfig  `json:"ingest" yaml:"ingest"`
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
}
