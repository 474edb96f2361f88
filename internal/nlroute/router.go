// Package nlroute turns free-text requests into a bounded navigation action.
// Route never fails: every error mode collapses into a RouteResult with
// section "unknown" and confidence 0, so callers always have a well-formed
// value to act on.
package nlroute

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/sokosumi/cli/internal/config"
)

const (
	SectionAccount = "account"
	SectionAgents  = "agents"
	SectionJobs    = "jobs"
	SectionQuit    = "quit"
	SectionUnknown = "unknown"

	defaultEndpoint  = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	maxReplyTokens   = 256
)

type RouteResult struct {
	Section    string
	Action     string
	Args       map[string]any
	Confidence float64
	Reason     string
}

func unknownResult(reason string) RouteResult {
	return RouteResult{
		Section:    SectionUnknown,
		Action:     "unknown",
		Args:       map[string]any{},
		Confidence: 0,
		Reason:     reason,
	}
}

type Router struct {
	key      string
	model    string
	endpoint string
	http     *http.Client
}

func New(cfg config.Config) *Router {
	return &Router{
		key:      cfg.RouterKey(),
		model:    cfg.Model,
		endpoint: defaultEndpoint,
		http:     &http.Client{},
	}
}

// NewWithEndpoint points the router at a non-default completion endpoint.
// Tests use it to stand in a local fake.
func NewWithEndpoint(cfg config.Config, endpoint string) *Router {
	router := New(cfg)
	router.endpoint = strings.TrimRight(endpoint, "/")
	return router
}

func buildPrompt(utterance string) string {
	return `You are a strict command router for a CLI application.
The CLI has these top-level sections (value in parentheses):
- My Account (account)
- Agents (agents)
- Jobs (jobs)
- Quit (quit)

Task: Map the user's request to exactly one section value from [account, agents, jobs, quit].
Also select a concise action verb and extract any relevant arguments.
If you are not confident, choose "unknown".

Guidelines:
- account: actions [show, usage, billing, plan, settings]
- agents: actions [list, show, create, update, delete]
- jobs: actions [list, start, status, cancel]
- quit: actions [quit]

Arguments (args) should be a flat JSON object with stable keys when present, e.g.:
- agents.create: {"agent_name":"..."}
- agents.show/update/delete: {"agent_id":"..."} OR {"agent_name":"..."}
- jobs.start: {"job_name":"..."} or {"task":"..."}
- jobs.status/cancel: {"job_id":"..."}
- account.show/usage/plan/billing/settings: {}

Respond with ONLY minified JSON, no markdown and no extra text. Schema:
{"section":"<account|agents|jobs|quit|unknown>","action":"<string>","args":{},"confidence":<0..1>,"reason":"<short>"}

User request: ` + utterance
}

// Route classifies the utterance. A missing credential short-circuits
// without any network attempt.
func (r *Router) Route(ctx context.Context, utterance string) RouteResult {
	if strings.TrimSpace(r.key) == "" {
		return unknownResult("Missing " + config.EnvAnthropicKey)
	}
	reply, err := r.complete(ctx, buildPrompt(utterance))
	if err != nil {
		return unknownResult(err.Error())
	}
	return parseReply(reply)
}

func (r *Router) complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       r.model,
		"max_tokens":  maxReplyTokens,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v1/messages", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", r.key)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{status: resp.StatusCode}
	}
	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", err
	}
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "completion request failed with status " + http.StatusText(e.status)
}

// parseReply validates the model's reply as untrusted input: strict JSON
// first, then the first balanced {...} substring, then full schema
// validation before anything downstream can branch on it.
func parseReply(reply string) RouteResult {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		extracted := extractJSONObject(reply)
		if extracted == "" || json.Unmarshal([]byte(extracted), &parsed) != nil {
			return unknownResult("Unparseable response")
		}
	}

	result := unknownResult("")
	if section, ok := parsed["section"].(string); ok && validSection(section) {
		result.Section = section
	}
	if action, ok := parsed["action"].(string); ok && strings.TrimSpace(action) != "" {
		result.Action = strings.TrimSpace(action)
	}
	if args, ok := parsed["args"].(map[string]any); ok && args != nil {
		result.Args = args
	}
	if confidence, ok := parsed["confidence"].(float64); ok && !math.IsNaN(confidence) && !math.IsInf(confidence, 0) {
		result.Confidence = clampFloat(confidence, 0, 1)
	}
	if reason, ok := parsed["reason"].(string); ok {
		result.Reason = reason
	}
	return result
}

func validSection(section string) bool {
	switch section {
	case SectionAccount, SectionAgents, SectionJobs, SectionQuit, SectionUnknown:
		return true
	default:
		return false
	}
}

func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
