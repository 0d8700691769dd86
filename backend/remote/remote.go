// Package remote is the HTTP client for the /api/todos API. Every call is
// retried with a bounded, fixed delay and reports connectivity on a status sink.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"todoapp/backend"
	"todoapp/internal/retry"
	"todoapp/internal/status"
	"todoapp/internal/utils"
)

// DefaultBaseURL is used when no backend origin is configured.
const DefaultBaseURL = "http://localhost:5000"

// DefaultTimeout bounds a single HTTP attempt.
const DefaultTimeout = 30 * time.Second

// Status texts published while calls are retried.
const (
	ConnectingFormat = "Connecting to backend... (attempt %d/%d)"
	UnavailableText  = "Connection failed - Backend unavailable"
)

var (
	// ErrUnavailable is returned once the retry budget of a call is spent.
	// Callers treat it as "operation did not complete".
	ErrUnavailable = errors.New("backend unavailable")
	// ErrMalformedBody is returned for a 2xx response whose body is not JSON.
	ErrMalformedBody = errors.New("malformed response body")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// Config holds client configuration.
type Config struct {
	// BaseURL prefixes every endpoint. Default: DefaultBaseURL
	BaseURL string
	// MaxRetries after the first failed attempt. Default: 10
	MaxRetries int
	// RetryDelay between attempts. Default: 2s
	RetryDelay time.Duration
	// Sleep performs the retry pause; tests pass retry.NoSleep.
	Sleep retry.SleepFunc
	// Timeout for one HTTP attempt. Default: 30s
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	// Status receives connectivity updates. Default: status.Discard
	Status status.Sink
	// Stats optionally records retry events.
	Stats *retry.Stats
}

// Client calls the /api/todos API.
type Client struct {
	baseURL string
	client  *http.Client
	policy  *retry.Policy
	status  status.Sink
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	sink := cfg.Status
	if sink == nil {
		sink = status.Discard
	}

	return &Client{
		baseURL: baseURL,
		client:  httpClient,
		policy: retry.New(retry.Config{
			MaxRetries: cfg.MaxRetries,
			Delay:      cfg.RetryDelay,
			Sleep:      cfg.Sleep,
			Stats:      cfg.Stats,
		}),
		status: sink,
	}
}

// BaseURL returns the origin calls are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is the result of a successful call.
type Response struct {
	// Body is the raw JSON body. It is empty for the success marker.
	Body json.RawMessage
}

// Marker reports whether the call succeeded without a meaningful body
// (DELETE, 204 or an empty 2xx body).
func (r *Response) Marker() bool {
	return len(r.Body) == 0
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v interface{}) error {
	if r.Marker() {
		return fmt.Errorf("%w: empty body", ErrMalformedBody)
	}
	return json.Unmarshal(r.Body, v)
}

// Call sends one logical request, retrying failures until the budget is spent.
// On exhaustion it publishes the terminal status and returns ErrUnavailable
// wrapping the last failure.
func (c *Client) Call(ctx context.Context, method, endpoint string, body interface{}) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	url := c.baseURL + endpoint
	var resp *Response

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		r, err := c.do(ctx, method, url, payload)
		if err != nil {
			utils.Debugf("API error: %s %s: %v", method, url, err)
			return err
		}
		resp = r
		return nil
	}, func(attempt, maxRetries int, _ error) {
		c.status.Set(fmt.Sprintf(ConnectingFormat, attempt, maxRetries), status.KindConnecting)
	})

	if err != nil {
		if retry.IsExhausted(err) {
			utils.Warnf("%s %s failed after %d retries: %v", method, url, c.policy.MaxRetries(), errors.Unwrap(err))
			c.status.Set(UnavailableText, status.KindError)
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Unwrap(err))
		}
		return nil, err
	}
	return resp, nil
}

// do performs a single HTTP attempt.
func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: url, Code: res.StatusCode}
	}

	if method == http.MethodDelete || res.StatusCode == http.StatusNoContent {
		return &Response{}, nil
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Response{}, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w from %s %s", ErrMalformedBody, method, url)
	}
	return &Response{Body: data}, nil
}

// =============================================================================
// Task Operations
// =============================================================================

// ListTasks fetches all tasks. A body that is not an array counts as no tasks.
func (c *Client) ListTasks(ctx context.Context) ([]backend.Task, error) {
	resp, err := c.Call(ctx, http.MethodGet, "/api/todos", nil)
	if err != nil {
		return nil, err
	}

	tasks := []backend.Task{}
	if resp.Marker() || resp.Body[0] != '[' {
		return tasks, nil
	}
	if err := json.Unmarshal(resp.Body, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return tasks, nil
}

// CreateTask creates a task. The returned task is nil when the server
// answered with the success marker only.
func (c *Client) CreateTask(ctx context.Context, title string) (*backend.Task, error) {
	resp, err := c.Call(ctx, http.MethodPost, "/api/todos", map[string]string{"title": title})
	if err != nil {
		return nil, err
	}
	return decodeTask(resp), nil
}

// UpdateTask replaces a task's title and done flag.
func (c *Client) UpdateTask(ctx context.Context, task backend.Task) (*backend.Task, error) {
	body := struct {
		Title string `json:"title"`
		Done  bool   `json:"done"`
	}{task.Title, task.Done}

	resp, err := c.Call(ctx, http.MethodPut, "/api/todos/"+task.ID, body)
	if err != nil {
		return nil, err
	}
	return decodeTask(resp), nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.Call(ctx, http.MethodDelete, "/api/todos/"+id, nil)
	return err
}

// Health checks GET /api/health.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.Call(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return "", err
	}
	var h struct {
		Status string `json:"status"`
	}
	if resp.Marker() || resp.Decode(&h) != nil || h.Status == "" {
		return "OK", nil
	}
	return h.Status, nil
}

// decodeTask returns the task in resp, or nil when the body is not a task.
func decodeTask(resp *Response) *backend.Task {
	if resp.Marker() {
		return nil
	}
	var t backend.Task
	if err := resp.Decode(&t); err != nil || t.ID == "" {
		return nil
	}
	return &t
}
