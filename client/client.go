// Package client provides the HTTP client for the duolist server API.
// It maps transport failures and server rejections onto the typed
// error taxonomy so callers can distinguish "retry on the next poll"
// from "this task is no longer available".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Czernobog023/duolist/checklist"
)

// maxResponseSize caps response bodies; snapshots for a two-person
// list are small.
const maxResponseSize = 10 << 20 // 10 MB

// Client talks to a duolist server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. It applies regardless of
// option order, including onto a client given via WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != 0 {
		c.httpClient.Timeout = c.timeout
	}
	return c
}

// FetchSnapshot retrieves the authoritative state for reconciliation.
func (c *Client) FetchSnapshot(ctx context.Context) (*checklist.Snapshot, error) {
	var snap checklist.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/data", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Propose creates a new pending task on the server.
func (c *Client) Propose(ctx context.Context, title, description, proposedBy string) (*checklist.Task, error) {
	body := map[string]string{
		"title":       title,
		"description": description,
		"proposedBy":  proposedBy,
	}
	var task checklist.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks/propose", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Validate records an approval of a pending task.
func (c *Client) Validate(ctx context.Context, taskID, userID string) (*checklist.ValidateResult, error) {
	var res checklist.ValidateResult
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/validate", userBody(userID), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Reject removes a pending task.
func (c *Client) Reject(ctx context.Context, taskID, userID string) (*checklist.Task, error) {
	var res taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/reject", userBody(userID), &res); err != nil {
		return nil, err
	}
	return res.Task, nil
}

// Complete marks an active task done.
func (c *Client) Complete(ctx context.Context, taskID, userID string) (*checklist.Task, error) {
	var task checklist.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/complete", userBody(userID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task from whichever collection holds it.
func (c *Client) Delete(ctx context.Context, taskID, userID string) (*checklist.Task, error) {
	var res taskEnvelope
	if err := c.do(ctx, http.MethodDelete, "/api/tasks/"+taskID, userBody(userID), &res); err != nil {
		return nil, err
	}
	return res.Task, nil
}

// Export downloads the full state.
func (c *Client) Export(ctx context.Context) (*checklist.ExportPayload, error) {
	var payload checklist.ExportPayload
	if err := c.do(ctx, http.MethodGet, "/api/export", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Import merges an exported payload into the server state.
func (c *Client) Import(ctx context.Context, payload *checklist.ExportPayload) (*checklist.ImportResult, error) {
	var res checklist.ImportResult
	if err := c.do(ctx, http.MethodPost, "/api/import", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health fetches the server health summary.
func (c *Client) Health(ctx context.Context) (*checklist.Health, error) {
	var h checklist.Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

type taskEnvelope struct {
	Task *checklist.Task `json:"task"`
}

func userBody(userID string) map[string]string {
	return map[string]string{"userId": userID}
}

// do performs one request and decodes the JSON response into dst.
func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Op: method + " " + path, URL: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp.StatusCode, data)
	}

	if dst != nil {
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorFromResponse turns a non-200 response into a typed error.
func (c *Client) errorFromResponse(status int, body []byte) error {
	var er struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &er)
	msg := er.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusBadRequest:
		return &checklist.ValidationError{Field: "request", Message: msg}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", checklist.ErrNotFound, msg)
	default:
		return fmt.Errorf("server error (%d): %s", status, msg)
	}
}
