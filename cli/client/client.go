package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// DefaultServerURL is used when neither --server nor TASKER_SERVER is set.
const DefaultServerURL = "http://localhost:8080"

// StageList is the response of GET /v1/stages.
type StageList struct {
	Revision uint64                    `json:"revision"`
	TakenAt  time.Time                 `json:"taken_at"`
	Items    []monitoring.StageSummary `json:"items"`
}

// StageTasks is the response of GET /v1/stages/{id}/tasks.
type StageTasks struct {
	Revision uint64                  `json:"revision"`
	Stage    monitoring.StageSummary `json:"stage"`
	Items    []monitoring.TaskView   `json:"items"`
}

// TaskList is the response of GET /v1/tasks.
type TaskList struct {
	Revision uint64                `json:"revision"`
	Count    int                   `json:"count"`
	Items    []monitoring.TaskView `json:"items"`
}

// TaskDetail is the response of GET /v1/tasks/{id}.
type TaskDetail struct {
	Revision uint64              `json:"revision"`
	Task     monitoring.TaskView `json:"task"`
}

// TaskLog is the response of GET /v1/tasks/{id}/log.
type TaskLog struct {
	TaskID   int64    `json:"task_id"`
	TaskName string   `json:"task_name"`
	Path     string   `json:"path"`
	Count    int      `json:"count"`
	Lines    []string `json:"lines"`
}

// ActivityList is the response of GET /v1/activity.
type ActivityList struct {
	Count int                  `json:"count"`
	Items []models.ActiveQuery `json:"items"`
}

// RefreshResult is the response of POST /v1/refresh.
type RefreshResult struct {
	Status          string    `json:"status"`
	MinPollInterval string    `json:"min_poll_interval"`
	LastPollAt      time.Time `json:"last_poll_at"`
}

// Event is one server-sent event from a stream endpoint.
type Event struct {
	Name string
	Data []byte
}

// Client talks to the monitor's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL. An empty serverURL falls
// back to TASKER_SERVER, then to DefaultServerURL.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("TASKER_SERVER")
	}
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Stages fetches the stage list.
func (c *Client) Stages() (*StageList, error) {
	var out StageList
	if err := c.get("/v1/stages", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StageTasks fetches the tasks of one stage.
func (c *Client) StageTasks(stageID int64) (*StageTasks, error) {
	var out StageTasks
	if err := c.get(fmt.Sprintf("/v1/stages/%d/tasks", stageID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tasks fetches all task views, optionally filtered by status.
func (c *Client) Tasks(status string) (*TaskList, error) {
	path := "/v1/tasks"
	if status != "" {
		path += "?status=" + status
	}
	var out TaskList
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Task fetches one task's full view.
func (c *Client) Task(taskID int64) (*TaskDetail, error) {
	var out TaskDetail
	if err := c.get(fmt.Sprintf("/v1/tasks/%d", taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskLog fetches the tail of a task's log file. lines <= 0 leaves the
// count to the server's configured default.
func (c *Client) TaskLog(taskID int64, lines int) (*TaskLog, error) {
	path := fmt.Sprintf("/v1/tasks/%d/log", taskID)
	if lines > 0 {
		path += fmt.Sprintf("?lines=%d", lines)
	}
	var out TaskLog
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity fetches the database's currently running queries.
func (c *Client) Activity(limit int) (*ActivityList, error) {
	path := "/v1/activity"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out ActivityList
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh asks the server to poll outside its timer cadence.
func (c *Client) Refresh() (*RefreshResult, error) {
	var out RefreshResult
	if err := c.post("/v1/refresh", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FollowTaskLog streams a task's log over SSE, calling fn for every line.
// It returns when ctx is cancelled or the stream ends.
func (c *Client) FollowTaskLog(ctx context.Context, taskID int64, lines int, fn func(line string) error) error {
	path := fmt.Sprintf("/v1/tasks/%d/log/stream", taskID)
	if lines > 0 {
		path += fmt.Sprintf("?lines=%d", lines)
	}
	return c.stream(ctx, path, func(ev Event) error {
		if ev.Name != "line" {
			return nil
		}
		return fn(string(ev.Data))
	})
}

// WatchEvents streams snapshot and change events, calling fn for each.
func (c *Client) WatchEvents(ctx context.Context, fn func(ev Event) error) error {
	return c.stream(ctx, "/v1/events", fn)
}

func (c *Client) get(path string, dst interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, dst)
}

func (c *Client) post(path string, dst interface{}) error {
	resp, err := c.http.Post(c.baseURL+path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, dst)
}

func decodeResponse(resp *http.Response, dst interface{}) error {
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s (HTTP %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("request failed with HTTP %d", resp.StatusCode)
}

// stream consumes a text/event-stream response. Streams have no overall
// timeout; cancellation comes from ctx.
func (c *Client) stream(ctx context.Context, path string, fn func(ev Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		name string
		data bytes.Buffer
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" {
				ev := Event{Name: name, Data: append([]byte(nil), data.Bytes()...)}
				if err := fn(ev); err != nil {
					return err
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return scanner.Err()
}
