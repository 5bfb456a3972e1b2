// Package devfirmsdk is a minimal client for the Devfirm HTTP API, meant for
// external drivers that run the simulation from another process.
package devfirmsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running devfirm serve instance.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Status mirrors the API status payload.
type Status struct {
	Company         string `json:"company"`
	Tick            uint64 `json:"tick"`
	Speed           string `json:"speed"`
	Money           int    `json:"money"`
	Employees       int    `json:"employees"`
	Idle            int    `json:"idle"`
	TasksTotal      int    `json:"tasks_total"`
	TasksDone       int    `json:"tasks_done"`
	Queued          int    `json:"queued"`
	Missions        int    `json:"missions"`
	Pending         int    `json:"pending_proposals"`
	FeaturesShipped int    `json:"features_shipped"`
	BugsFixed       int    `json:"bugs_fixed"`
}

// Employee is the API employee model.
type Employee struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	SkillLevel   int    `json:"skill_level"`
	Productivity int    `json:"productivity"`
	Morale       int    `json:"morale"`
	Salary       int    `json:"salary"`
}

// Task is the API task model (partial).
type Task struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	AssigneeID     *string `json:"assignee_id,omitempty"`
	EstimatedTicks float64 `json:"estimated_ticks"`
	ProgressTicks  float64 `json:"progress_ticks"`
}

// Mission is the API mission model.
type Mission struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Branch  string   `json:"branch"`
	Status  string   `json:"status"`
	TaskIDs []string `json:"task_ids,omitempty"`
}

// Proposal is the API proposal model (partial).
type Proposal struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Reasoning string `json:"reasoning"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
}

// LogEntry is one event log record.
type LogEntry struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Tick       uint64 `json:"tick"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Status fetches the aggregate company view.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp Status
	err := c.do(ctx, http.MethodGet, "v0/status", nil, &resp)
	return resp, err
}

// Tick advances the simulation n ticks.
func (c *Client) Tick(ctx context.Context, n int) (Status, error) {
	var resp Status
	err := c.do(ctx, http.MethodPost, "v0/tick", map[string]any{"n": n}, &resp)
	return resp, err
}

// SetSpeed changes the simulation speed.
func (c *Client) SetSpeed(ctx context.Context, speed string) error {
	return c.do(ctx, http.MethodPost, "v0/speed", map[string]any{"speed": speed}, nil)
}

// Hire hires an employee.
func (c *Client) Hire(ctx context.Context, name, role string) (Employee, error) {
	var resp Employee
	err := c.do(ctx, http.MethodPost, "v0/employees", map[string]any{"name": name, "role": role}, &resp)
	return resp, err
}

// Employees lists all employees.
func (c *Client) Employees(ctx context.Context) ([]Employee, error) {
	var resp []Employee
	err := c.do(ctx, http.MethodGet, "v0/employees", nil, &resp)
	return resp, err
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, title, taskType, priority string) (Task, error) {
	body := map[string]any{"title": title}
	if taskType != "" {
		body["type"] = taskType
	}
	if priority != "" {
		body["priority"] = priority
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", body, &resp)
	return resp, err
}

// Tasks lists tasks, optionally filtered by status.
func (c *Client) Tasks(ctx context.Context, status string) ([]Task, error) {
	endpoint := "v0/tasks"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AssignTask assigns a task to an employee.
func (c *Client) AssignTask(ctx context.Context, taskID, employeeID string) error {
	endpoint := fmt.Sprintf("v0/tasks/%s/assign", url.PathEscape(taskID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{"employee_id": employeeID}, nil)
}

// Enqueue adds a work item to the intake queue.
func (c *Client) Enqueue(ctx context.Context, title string, labels []string) error {
	return c.do(ctx, http.MethodPost, "v0/queue", map[string]any{"title": title, "labels": labels}, nil)
}

// ProcessQueue assigns queued items to idle employees now.
func (c *Client) ProcessQueue(ctx context.Context) ([]string, error) {
	var resp struct {
		AssignedTaskIDs []string `json:"assigned_task_ids"`
	}
	err := c.do(ctx, http.MethodPost, "v0/queue/process", nil, &resp)
	return resp.AssignedTaskIDs, err
}

// Missions lists missions.
func (c *Client) Missions(ctx context.Context) ([]Mission, error) {
	var resp []Mission
	err := c.do(ctx, http.MethodGet, "v0/missions", nil, &resp)
	return resp, err
}

// Proposals lists pending proposals.
func (c *Client) Proposals(ctx context.Context) ([]Proposal, error) {
	var resp []Proposal
	err := c.do(ctx, http.MethodGet, "v0/proposals", nil, &resp)
	return resp, err
}

// ApproveProposal approves a pending proposal.
func (c *Client) ApproveProposal(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("v0/proposals/%s/approve", url.PathEscape(id))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// RejectProposal rejects a pending proposal.
func (c *Client) RejectProposal(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("v0/proposals/%s/reject", url.PathEscape(id))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// TailLog returns the most recent event log entries, oldest first.
func (c *Client) TailLog(ctx context.Context, n int) ([]LogEntry, error) {
	endpoint := "v0/log"
	if n > 0 {
		endpoint = fmt.Sprintf("%s?n=%d", endpoint, n)
	}
	var resp []LogEntry
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
