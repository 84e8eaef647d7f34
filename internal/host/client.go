package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// SeverityInfo marks informational user notifications.
	SeverityInfo = "info"
	// SeverityError marks failure user notifications.
	SeverityError = "error"
)

// Client talks to the host productivity application API.
// Params: base URL, bearer token, and request timeout.
// Returns: host API client instance.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a host API client.
// Params: baseURL host API root; token bearer credential; timeout request timeout.
// Returns: configured client.
func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Projects fetches all host projects.
// Params: ctx for cancellation.
// Returns: project list or HTTP/decode error.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.getJSON(ctx, "/projects", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tags fetches all host tags.
// Params: ctx for cancellation.
// Returns: tag list or HTTP/decode error.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var out []Tag
	if err := c.getJSON(ctx, "/tags", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveTasks fetches the current task list.
// Params: ctx for cancellation.
// Returns: task list or HTTP/decode error.
func (c *Client) ActiveTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.getJSON(ctx, "/tasks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ArchivedTasks fetches archived tasks.
// Params: ctx for cancellation.
// Returns: task list or HTTP/decode error.
func (c *Client) ArchivedTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.getJSON(ctx, "/tasks/archived", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Notify shows a user-visible notification in the host UI.
// Params: ctx for cancellation; message text; severity info/error level.
// Returns: HTTP error when the notification cannot be delivered.
func (c *Client) Notify(ctx context.Context, message string, severity string) error {
	payload, err := json.Marshal(map[string]string{
		"message":  message,
		"severity": severity,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/notifications",
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(req.URL.Path, resp)
	}
	return nil
}

// getJSON performs an authorized GET and decodes the JSON response.
// Params: ctx for cancellation; path API path relative to base; out decode target.
// Returns: HTTP or decode error.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("host url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// authorize adds the bearer token header when a token is configured.
// Params: req outbound request.
// Returns: none.
func (c *Client) authorize(req *http.Request) {
	if c.token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// statusError builds an error from a non-success host response.
// Params: path request path; resp response with open body.
// Returns: error with status and trimmed body excerpt.
func statusError(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	bodyText := strings.TrimSpace(string(body))
	if bodyText == "" {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}
	return fmt.Errorf("%s: unexpected status %s: %s", path, resp.Status, bodyText)
}
