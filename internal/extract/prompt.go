// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/pdiddy/mail-agent/internal/httputil"
)

// extractionPromptTmpl instructs the model to detect time-bound
// obligations and return the exact date-bearing text span untouched; date
// arithmetic happens downstream in the deterministic resolver, never in
// the model.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are an email automation agent.
OBJECTIVE: Detect time-bound obligations (deadlines, exams, meetings).

STEP 1: INTENT DETECTION
Detect any of: deadline, exam, submission, meeting, assignment, homework, project.
If NONE apply, return {"status": "ignored"} and nothing else.

STEP 2: EXTRACTION
Extract:
- event_title: a short summary of the obligation
- date_text: the EXACT text snippet describing the date (e.g. "next Wednesday", "tomorrow", "12th Feb"). Do not rephrase or compute dates.
- event_type: exam | deadline | meeting

Content under a "[Attachment PDF Content]:" marker is attachment-derived and takes priority over the surrounding body.
If the email lists several dated items, return only the first chronologically relevant one.
If several items share the same date, merge them into one combined title (e.g. "2 Exams: Mathematics & Physics") instead of returning multiple records.

STEP 3: OUTPUT
Respond with a single JSON object and no text outside it:
{
  "email_id": "{{.EmailID}}",
  "status": "processed",
  "event_type": "exam | deadline | meeting",
  "event_title": "...",
  "date_text": "...",
  "confidence": 0.0 to 1.0,
  "action": "auto_add | needs_confirmation"
}

EMAIL CONTENT:
{{.Content}}
`))

// renderPrompt executes the extraction prompt template.
func renderPrompt(emailID, content string) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct {
		EmailID string
		Content string
	}{EmailID: emailID, Content: content})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API for one extraction prompt.
type ClaudeBackend struct {
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the prompt and concatenates the text blocks of the
// response in order. Rate-limited requests are retried with backoff; a
// 429 that survives the retries surfaces as ErrQuotaExceeded.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 1024,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: 429 after retries", ErrQuotaExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	if len(cResp.Content) == 0 {
		return "", fmt.Errorf("Claude API returned empty content")
	}

	var sb strings.Builder
	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		sb.WriteString(block.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return sb.String(), nil
}
