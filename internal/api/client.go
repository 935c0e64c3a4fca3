package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "taskpal/internal/errors"
	"taskpal/internal/logging"
)

// Client is the typed client for the backend HTTP API. Credential handling
// and 401 interception live in the transport stack it is constructed with;
// Client itself only shapes requests and classifies failures.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// NewClient builds a Client for baseURL. httpClient is expected to carry the
// bearer and auth-gate transports.
func NewClient(baseURL string, httpClient *http.Client, logger logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logging.OrNop(logger),
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", body, &out)
	return out, err
}

// Register creates an account. It does not authenticate the session; callers
// follow up with Login when immediate sign-in is desired.
func (c *Client) Register(ctx context.Context, email, password string) (User, error) {
	var out User
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/register", body, &out)
	return out, err
}

// VerifyToken validates a persisted token and returns the identity it
// belongs to.
func (c *Client) VerifyToken(ctx context.Context, token string) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/auth/verify-token", map[string]string{"token": token}, &out)
	return out, err
}

// ListTasks returns the caller's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &out)
	return out, err
}

// CreateTask creates a task; the server assigns id and created_at.
func (c *Client) CreateTask(ctx context.Context, input TaskCreate) (Task, error) {
	var out Task
	err := c.do(ctx, http.MethodPost, "/tasks", input, &out)
	return out, err
}

// UpdateTask applies a partial update and returns the updated record.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	var out Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), patch, &out)
	return out, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// CreateRecurringTask creates a task with a recurrence rule.
func (c *Client) CreateRecurringTask(ctx context.Context, input RecurringTaskCreate) (RecurringTask, error) {
	var out RecurringTask
	err := c.do(ctx, http.MethodPost, "/recurring-tasks", input, &out)
	return out, err
}

// SendChat delivers one chat turn. The first turn of a session goes to the
// per-user endpoint; once a conversation id is known, turns continue on it.
func (c *Client) SendChat(ctx context.Context, userID, conversationID, content string) (ChatResponse, error) {
	path := "/users/" + url.PathEscape(userID) + "/chat"
	if conversationID != "" {
		path = "/conversations/" + url.PathEscape(conversationID) + "/chat"
	}
	var out ChatResponse
	err := c.do(ctx, http.MethodPost, path, ChatRequest{Content: content}, &out)
	return out, err
}

// ListNotifications returns notifications, optionally filtered by status.
func (c *Client) ListNotifications(ctx context.Context, statusFilter string) ([]Notification, error) {
	path := "/notifications"
	if statusFilter != "" {
		path += "?status_filter=" + url.QueryEscape(statusFilter)
	}
	var out []Notification
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead marks every pending notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPatch, "/notifications/mark-all-read", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperrors.NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readResponse(resp.Body)
	if err != nil {
		return &apperrors.NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The auth gate has already forced the logout; callers still see the
		// rejection and must not assume it was handled for them.
		return &apperrors.AuthError{Err: fmt.Errorf("%s %s", method, path)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.ServerError{Status: resp.StatusCode, Message: detailMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperrors.ServerError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

// maxResponseBytes caps how much of a backend response do will buffer. The
// largest legitimate payloads here are task lists a few KB wide; a body past
// this limit is a server fault, not data.
const maxResponseBytes = 4 << 20

func readResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	}
	return data, nil
}

// detailMessage lifts the human-readable message out of a FastAPI-style
// {"detail": ...} error body. detail is usually a string but can be a list
// of field errors.
func detailMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return ""
}
