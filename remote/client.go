// Package remote implements the HTTP client for the authoritative board
// store. Every method maps to one endpoint of the store contract; responses
// are either a 2xx payload or an {error} body surfaced as *Error.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

// TokenSource supplies the session bearer token for outgoing requests.
type TokenSource func() string

// Client talks to the remote board store.
type Client struct {
	base   string
	http   *http.Client
	token  TokenSource
	logger *log.Logger
}

// NewClient creates a client for the store at baseURL. A nil httpClient
// falls back to a default with a 30s timeout.
func NewClient(baseURL string, token TokenSource, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   httpClient,
		token:  token,
		logger: logger,
	}
}

// ProjectView is the full board payload returned by the project endpoint.
type ProjectView struct {
	Project      domain.Project           `json:"project"`
	Role         domain.Role              `json:"role"`
	TasksByStage map[string][]domain.Task `json:"tasks_by_stage"`
	Counts       map[string]int           `json:"counts,omitempty"`
}

// FetchProject retrieves the project, the viewer's role and all tasks
// grouped by stage.
func (c *Client) FetchProject(ctx context.Context, projectID string) (ProjectView, error) {
	var view ProjectView
	err := c.do(ctx, http.MethodGet, "/projects/"+projectID, nil, &view)
	return view, err
}

// CreateTask persists a new task and returns the stored row.
func (c *Client) CreateTask(ctx context.Context, nt domain.NewTask) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks", nt, &task)
	return task, err
}

// UpdateTask applies a field patch and returns the updated row.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+taskID, patch, &task)
	return task, err
}

type moveRequest struct {
	StageID  string `json:"stage_id"`
	Position int    `json:"position"`
}

// MoveTask places the task at the given stage and position. The endpoint is
// idempotent against equal state.
func (c *Client) MoveTask(ctx context.Context, taskID, stageID string, position int) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/move", moveRequest{StageID: stageID, Position: position}, nil)
}

type reorderRequest struct {
	StageID        string   `json:"stage_id"`
	OrderedTaskIDs []string `json:"ordered_task_ids"`
}

// ReorderStage sends the full intended order for one stage.
func (c *Client) ReorderStage(ctx context.Context, projectID, stageID string, orderedTaskIDs []string) error {
	return c.do(ctx, http.MethodPost, "/projects/"+projectID+"/reorder", reorderRequest{StageID: stageID, OrderedTaskIDs: orderedTaskIDs}, nil)
}

// DeleteTask removes the task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+taskID, nil, nil)
}

// ApproveTask marks the task approved and returns the updated row.
func (c *Client) ApproveTask(ctx context.Context, taskID string) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/approve", nil, &task)
	return task, err
}

type rejectRequest struct {
	ReturnStageID string `json:"returnStageId,omitempty"`
}

// RejectTask revokes approval and sends the task back to the given stage.
func (c *Client) RejectTask(ctx context.Context, taskID, returnStageID string) error {
	return c.delete(ctx, "/tasks/"+taskID+"/approve", rejectRequest{ReturnStageID: returnStageID})
}

func (c *Client) delete(ctx context.Context, path string, body any) error {
	return c.request(ctx, http.MethodDelete, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.request(ctx, method, path, body, out)
}

func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(method, path string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := sonic.ConfigStd.Unmarshal(data, &payload); err != nil {
		payload.Error = ""
	}
	c.logger.WithFields(log.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("remote request failed")
	return &Error{Status: resp.StatusCode, Message: payload.Error}
}
