// Package remote implements the HTTP client for the external task
// execution service: one submission request and one status query, no
// retries, no state beyond the configured endpoint. Retry and timeout
// policy belongs entirely to the caller.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client errors.
var (
	// ErrUnexpectedStatus is returned when the executor responds with a
	// non-success HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrNoEndpoint is returned when no backend endpoint is configured.
	ErrNoEndpoint = errors.New("no backend endpoint configured")
)

// EndpointSource supplies the current backend endpoint. The endpoint is
// read per request, so changing it mid-poll affects the next request, not
// in-flight ones.
type EndpointSource interface {
	Endpoint() string
}

// SubmitResult is the outcome of a successful command submission.
type SubmitResult struct {
	// TaskID is the server-assigned task identifier, resolved from the
	// task_id, id, or taskId response fields in that priority order.
	// Empty when the response carried none of them; the caller is expected
	// to generate an identifier in that case.
	TaskID string

	// Raw is the full decoded response body.
	Raw map[string]any
}

// TaskState is one decoded status-query response.
type TaskState struct {
	// Status is the remote-reported status string, unnormalized.
	Status string

	// Progress is the remote-reported progress when present.
	Progress *int

	// Result is the remote-reported result payload, nil until terminal.
	Result any

	// Raw is the full decoded response body.
	Raw map[string]any
}

// Client issues submission and status-query requests against the current
// configured endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   EndpointSource
	logger     *slog.Logger
}

// NewClient creates a remote executor client. The timeout bounds each
// individual request.
func NewClient(endpoint EndpointSource, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		logger:     logger.With("component", "remote_client"),
	}
}

// SubmitCommand submits a command for execution via
// POST {endpoint}/command with body {"command": ...}.
func (c *Client) SubmitCommand(ctx context.Context, command string) (*SubmitResult, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/command", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Raw: raw}
	// The executor is loose about the id field name; accept the known
	// variants in priority order.
	for _, key := range []string{"task_id", "id", "taskId"} {
		if id := stringField(raw, key); id != "" {
			result.TaskID = id
			break
		}
	}
	return result, nil
}

// QueryTask fetches the current state of a task via GET {endpoint}/task/{id}.
func (c *Client) QueryTask(ctx context.Context, taskID string) (*TaskState, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/task/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	state := &TaskState{
		Status: stringField(raw, "status"),
		Result: raw["result"],
		Raw:    raw,
	}
	if progress, ok := numberField(raw, "progress"); ok {
		state.Progress = &progress
	}
	return state, nil
}

// do executes the request and decodes the JSON response body.
func (c *Client) do(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executor request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, req.URL.Path, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode executor response: %w", err)
	}
	return raw, nil
}

// baseURL reads the current endpoint and normalizes a trailing slash.
func (c *Client) baseURL() (string, error) {
	endpoint := strings.TrimSpace(c.endpoint.Endpoint())
	if endpoint == "" {
		return "", ErrNoEndpoint
	}
	return strings.TrimRight(endpoint, "/"), nil
}

// stringField extracts a string-ish field from a decoded JSON object.
// Numeric ids are rendered as their decimal form.
func stringField(raw map[string]any, key string) string {
	switch val := raw[key].(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// numberField extracts an integer field from a decoded JSON object.
func numberField(raw map[string]any, key string) (int, bool) {
	if val, ok := raw[key].(float64); ok {
		return int(val), true
	}
	return 0, false
}
