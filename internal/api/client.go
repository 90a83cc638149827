package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrDaemonUnavailable is returned when the daemon API cannot be reached.
var ErrDaemonUnavailable = errors.New("daemon API unavailable")

// StatusError carries a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api returned status %d", e.Code)
}

// Client is a typed HTTP client for the daemon API.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient builds a client for the given bind address. The address may be a
// bare host:port; the http scheme is assumed.
func NewClient(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Status fetches the daemon runtime status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &payload)
	return payload, err
}

// CreateTask submits a URL for download and returns the resulting task. The
// daemon deduplicates, so the task may already be completed or failed.
func (c *Client) CreateTask(ctx context.Context, taskURL string) (Task, error) {
	var payload TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/tasks", nil, CreateTaskRequest{URL: taskURL}, &payload)
	return payload.Task, err
}

// ListTasks fetches tasks, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, statuses ...string) ([]Task, error) {
	values := url.Values{}
	for _, status := range statuses {
		if trimmed := strings.TrimSpace(status); trimmed != "" {
			values.Add("status", trimmed)
		}
	}
	var payload TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", values, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

// GetTask fetches a single task. It returns nil when the task does not exist.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var payload TaskResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &payload)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payload.Task, nil
}

// CancelTask requests cancellation of a task. Cancelled reports whether the
// task was active and is now cancelled.
func (c *Client) CancelTask(ctx context.Context, id string) (CancelResponse, error) {
	var payload CancelResponse
	err := c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, &payload)
	return payload, err
}

// Videos fetches the catalog of completed downloads.
func (c *Client) Videos(ctx context.Context) ([]Video, error) {
	var payload VideoListResponse
	if err := c.do(ctx, http.MethodGet, "/api/videos", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Videos, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrDaemonUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsDaemonUnavailable reports whether the error indicates the daemon is not
// reachable, as opposed to a request the daemon rejected.
func IsDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrDaemonUnavailable) || errors.As(err, &opErr)
}
