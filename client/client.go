// Package client implements the backend collaborators the board engine
// consumes: the REST task API and the SSE realtime channel.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

const responseMaxSize = 8 << 20

// TokenSource supplies the bearer credential attached to every backend call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns the same credential for every call.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no backend token configured")
	}
	return string(s), nil
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Client talks to the task backend over HTTP. Mutating calls carry a
// generated Idempotency-Key header so the backend can deduplicate retries.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
}

// New creates a backend client for the given base URL.
func New(baseURL string, tokens TokenSource, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  logger,
	}
}

// FetchColumns retrieves the full board snapshot for a project, grouped by
// the backend's status representation.
func (c *Client) FetchColumns(ctx context.Context, projectID string) (map[string][]domain.Task, error) {
	var out map[string][]domain.Task
	path := "/api/projects/" + url.PathEscape(projectID) + "/columns"
	if err := c.call(ctx, http.MethodGet, path, nil, &out, "board.fetch_columns"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTask creates a task in the given list and returns the stored entity.
func (c *Client) CreateTask(ctx context.Context, listID string, payload domain.Task) (domain.Task, error) {
	var out domain.Task
	path := "/api/lists/" + url.PathEscape(listID) + "/tasks"
	if err := c.call(ctx, http.MethodPost, path, payload, &out, "board.create_task"); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// UpdateTask applies a partial update and returns the stored entity.
func (c *Client) UpdateTask(ctx context.Context, taskID string, payload domain.Task) (domain.Task, error) {
	var out domain.Task
	path := "/api/tasks/" + url.PathEscape(taskID)
	if err := c.call(ctx, http.MethodPut, path, payload, &out, "board.update_task"); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	path := "/api/tasks/" + url.PathEscape(taskID)
	return c.call(ctx, http.MethodDelete, path, nil, nil, "board.delete_task")
}

// MoveTask changes a task's column, passing the backend's own status
// representation.
func (c *Client) MoveTask(ctx context.Context, taskID, backendStatus string) (domain.Task, error) {
	var out domain.Task
	path := "/api/tasks/" + url.PathEscape(taskID) + "/move"
	body := struct {
		Status string `json:"status"`
	}{Status: backendStatus}
	if err := c.call(ctx, http.MethodPost, path, body, &out, "board.move_task"); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any, op string) (err error) {
	metrics, ctx := newRequestMetrics(ctx, c.logger, op, method, path)
	status := 0
	defer func() {
		metrics.Log(status, err)
	}()

	var reader io.Reader
	if body != nil {
		data, merr := sonic.Marshal(body)
		if merr != nil {
			err = fmt.Errorf("encode request: %w", merr)
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	tokenStart := time.Now()
	token, err := c.tokens.Token(ctx)
	metrics.ObserveAuth(time.Since(tokenStart))
	if err != nil {
		err = fmt.Errorf("credential: %w", err)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	callStart := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveCall(time.Since(callStart))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status = resp.StatusCode
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err = &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		return err
	}
	status = resp.StatusCode

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	decodeStart := time.Now()
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, responseMaxSize))
	err = dec.Decode(out)
	metrics.ObserveDecode(time.Since(decodeStart))
	if err != nil {
		err = fmt.Errorf("decode response: %w", err)
	}
	return err
}
