// Package api talks to the Sokosumi marketplace: a thin gateway client for
// its JSON REST surface plus the normalizers that turn arbitrary response
// bodies into fixed-shape entities.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sokosumi/cli/internal/config"
)

const agentsPath = "/api/v1/agents"

// DecodeError means the response body was not valid JSON. It carries the
// HTTP status and the raw text so the view can show what actually came back.
type DecodeError struct {
	Status int
	Body   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse JSON response (status %d)", e.Status)
}

// RequestError means the server answered outside the 2xx range. Body holds
// the decoded JSON when decoding succeeded, else the raw text.
type RequestError struct {
	Status int
	Body   any
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type Client struct {
	cfg  config.Config
	http *http.Client
}

// NewClient builds a client over the given configuration. There is no retry,
// cache, or timeout layer; cancellation flows through the request context.
func NewClient(cfg config.Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{}}
}

// joinURL joins base and path with exactly one separating slash, regardless
// of trailing/leading slashes on either side.
func joinURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

func (c *Client) Get(ctx context.Context, path string) (any, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (any, error) {
	if err := c.cfg.RequireAPI(); err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, joinURL(c.cfg.BaseURL, path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	text := string(raw)

	var decoded any
	decodeFailed := false
	if strings.TrimSpace(text) == "" {
		decoded = nil
	} else if err := json.Unmarshal(raw, &decoded); err != nil {
		decodeFailed = true
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if decodeFailed {
		if ok {
			return nil, &DecodeError{Status: resp.StatusCode, Body: text}
		}
		return nil, &RequestError{Status: resp.StatusCode, Body: text}
	}
	if !ok {
		return nil, &RequestError{Status: resp.StatusCode, Body: decoded}
	}
	return decoded, nil
}

// Agents lists the hireable agents.
func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	payload, err := c.Get(ctx, agentsPath)
	if err != nil {
		return nil, err
	}
	envelope := EnvelopeFrom(payload)
	agents := []Agent{}
	if list, ok := envelope.Data.([]any); ok {
		for _, item := range list {
			agents = append(agents, AgentFrom(item))
		}
	}
	return agents, nil
}

// AgentJobs lists the jobs recorded against one agent.
func (c *Client) AgentJobs(ctx context.Context, agentID string) ([]AgentJob, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, errors.New("agentID is required")
	}
	payload, err := c.Get(ctx, agentsPath+"/"+agentID+"/jobs")
	if err != nil {
		return nil, err
	}
	envelope := EnvelopeFrom(payload)
	jobs := []AgentJob{}
	if list, ok := envelope.Data.([]any); ok {
		for _, item := range list {
			jobs = append(jobs, AgentJobFrom(item))
		}
	}
	return jobs, nil
}

// AgentInputSchema fetches the ordered field descriptors for an agent's
// hire form.
func (c *Client) AgentInputSchema(ctx context.Context, agentID string) ([]FieldDescriptor, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, errors.New("agentID is required")
	}
	payload, err := c.Get(ctx, agentsPath+"/"+agentID+"/input-schema")
	if err != nil {
		return nil, err
	}
	envelope := EnvelopeFrom(payload)
	fields := []FieldDescriptor{}
	if data, ok := asObject(envelope.Data); ok {
		if list, ok := data["input_data"].([]any); ok {
			for _, item := range list {
				fields = append(fields, FieldDescriptorFrom(item))
			}
		}
	}
	return fields, nil
}

// HireRequest is the job-creation payload.
type HireRequest struct {
	InputData          map[string]string `json:"inputData"`
	MaxAcceptedCredits *float64          `json:"maxAcceptedCredits"`
}

// CreateAgentJob posts a new job for the agent and returns the created job.
func (c *Client) CreateAgentJob(ctx context.Context, agentID string, req HireRequest) (AgentJob, error) {
	if strings.TrimSpace(agentID) == "" {
		return AgentJob{}, errors.New("agentID is required")
	}
	if req.InputData == nil {
		req.InputData = map[string]string{}
	}
	payload, err := c.Post(ctx, agentsPath+"/"+agentID+"/jobs", req)
	if err != nil {
		return AgentJob{}, err
	}
	envelope := EnvelopeFrom(payload)
	return AgentJobFrom(envelope.Data), nil
}

// CurrentUser fetches the account behind the configured API key.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	payload, err := c.Get(ctx, "/api/v1/users/me")
	if err != nil {
		return User{}, err
	}
	envelope := EnvelopeFrom(payload)
	return UserFrom(envelope.Data), nil
}
