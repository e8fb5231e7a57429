// Package client provides a Go client for the kektorsnb HTTP API.
//
// It offers a type-safe way to:
//   - Run any of the benchmark operations by kind (Execute).
//   - Call the most common reads with typed results.
//   - Administer the server (stats, snapshots, AOF rewrite).
//   - Start and follow background tasks (bulk loads, workload runs).
//
// The client handles HTTP communication, JSON serialization/deserialization, and
// standardized error handling.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sanonone/kektorsnb/pkg/driver"
	"github.com/sanonone/kektorsnb/pkg/engine"
	"github.com/sanonone/kektorsnb/pkg/queries"
	"github.com/sanonone/kektorsnb/pkg/snapshot"
)

// --- Custom Errors ---

// APIError represents an error returned by the API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an API 404, e.g. an unknown person.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// --- JSON Response Structs ---

// Result is the envelope of an executed operation.
type Result struct {
	Kind    string          `json:"kind"`
	Count   int             `json:"count"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Operation describes one supported operation kind.
type Operation struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Update bool   `json:"update"`
}

// Task represents an asynchronous operation on the server.
type Task struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	Status          string          `json:"status"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Error           string          `json:"error,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`

	client *Client // Reference to the client for polling.
}

type taskAccepted struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// --- Client ---

// Client is the Go client for interacting with kektorsnb.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a new client for host:port. An empty authToken sends no
// Authorization header.
func New(host string, port int, authToken string) *Client {
	return NewWithURL(fmt.Sprintf("http://%s:%d", host, port), authToken)
}

// NewWithURL creates a client for a base URL such as "http://localhost:9091".
func NewWithURL(baseURL, authToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// jsonRequest is a helper method to execute all requests to the API.
// It handles JSON serialization, HTTP calls, and error management.
func (c *Client) jsonRequest(method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		reqBody = bytes.NewReader(p)
	default:
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

func (c *Client) getJSON(method, endpoint string, payload, out any) error {
	respBody, err := c.jsonRequest(method, endpoint, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("invalid JSON response for %s: %w", endpoint, err)
	}
	return nil
}

// --- Operations ---

// Operations lists the operation kinds the server supports.
func (c *Client) Operations() ([]Operation, error) {
	var out []Operation
	err := c.getJSON(http.MethodGet, "/ops", nil, &out)
	return out, err
}

// Execute runs the operation kind (a short code such as "IC13" or a name
// such as "shortest_path") with params and decodes its payload into out.
// out may be nil for mutations. params may be a struct, a map or a
// json.RawMessage.
func (c *Client) Execute(kind string, params, out any) (*Result, error) {
	if params == nil {
		params = json.RawMessage("{}")
	}
	var res Result
	if err := c.getJSON(http.MethodPost, "/ops/"+kind, params, &res); err != nil {
		return nil, err
	}
	if out != nil && len(res.Payload) > 0 {
		if err := json.Unmarshal(res.Payload, out); err != nil {
			return &res, fmt.Errorf("invalid payload for %s: %w", kind, err)
		}
	}
	return &res, nil
}

// PersonProfile runs IS1.
func (c *Client) PersonProfile(personID int64) (*queries.PersonProfileResult, error) {
	var out queries.PersonProfileResult
	if _, err := c.Execute("IS1", queries.PersonProfileParams{PersonID: personID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FriendsByName runs IC1.
func (c *Client) FriendsByName(personID int64, firstName string, limit int) ([]queries.FriendsByNameResult, error) {
	var out []queries.FriendsByNameResult
	p := queries.FriendsByNameParams{PersonID: personID, FirstName: firstName, Limit: limit}
	if _, err := c.Execute("IC1", p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShortestPath runs IC13 and returns the path length, -1 when unreachable.
func (c *Client) ShortestPath(person1ID, person2ID int64) (int, error) {
	var out queries.ShortestPathResult
	if _, err := c.Execute("IC13", queries.PairParams{Person1ID: person1ID, Person2ID: person2ID}, &out); err != nil {
		return 0, err
	}
	return out.ShortestPathLength, nil
}

// TrustedPaths runs IC14.
func (c *Client) TrustedPaths(person1ID, person2ID int64) ([]queries.TrustedPathsResult, error) {
	var out []queries.TrustedPathsResult
	if _, err := c.Execute("IC14", queries.PairParams{Person1ID: person1ID, Person2ID: person2ID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Administration Methods ---

// Stats returns vertex and edge counts and persistence state.
func (c *Client) Stats() (*engine.Stats, error) {
	var out engine.Stats
	if err := c.getJSON(http.MethodGet, "/system/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save takes a snapshot and truncates the transaction log.
func (c *Client) Save() (*snapshot.Meta, error) {
	var out struct {
		Snapshot snapshot.Meta `json:"snapshot"`
	}
	if err := c.getJSON(http.MethodPost, "/system/save", nil, &out); err != nil {
		return nil, err
	}
	return &out.Snapshot, nil
}

// AOFRewrite compacts the transaction log.
func (c *Client) AOFRewrite() error {
	_, err := c.jsonRequest(http.MethodPost, "/system/aof-rewrite", nil)
	return err
}

// Load starts a bulk load of a dataset directory on the server host.
func (c *Client) Load(root string, batchSize int) (*Task, error) {
	req := map[string]any{"root": root}
	if batchSize > 0 {
		req["batch_size"] = batchSize
	}
	return c.startTask("/system/load", req)
}

// RunWorkload starts a workload run on the server.
func (c *Client) RunWorkload(entries []driver.Entry, workers int) (*Task, error) {
	req := map[string]any{"operations": entries}
	if workers > 0 {
		req["workers"] = workers
	}
	return c.startTask("/workloads", req)
}

func (c *Client) startTask(endpoint string, req any) (*Task, error) {
	var accepted taskAccepted
	if err := c.getJSON(http.MethodPost, endpoint, req, &accepted); err != nil {
		return nil, err
	}
	return &Task{ID: accepted.TaskID, Status: accepted.Status, client: c}, nil
}

// GetTaskStatus retrieves the status of a long-running task.
func (c *Client) GetTaskStatus(taskID string) (*Task, error) {
	var task Task
	if err := c.getJSON(http.MethodGet, "/tasks/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// Refresh updates the task's status by querying the server.
func (t *Task) Refresh() error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updatedTask, err := t.client.GetTaskStatus(t.ID)
	if err != nil {
		return err
	}
	t.Kind = updatedTask.Kind
	t.Status = updatedTask.Status
	t.ProgressMessage = updatedTask.ProgressMessage
	t.Error = updatedTask.Error
	t.Result = updatedTask.Result
	return nil
}

// Wait blocks until the task is completed, checking its status at regular intervals.
func (t *Task) Wait(interval, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout exceeded while waiting for task %s", t.ID)
		case <-ticker.C:
			if err := t.Refresh(); err != nil {
				return err
			}
			switch t.Status {
			case "completed":
				return nil
			case "failed":
				return fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
			case "running", "started":
				// Continue waiting.
			default:
				return fmt.Errorf("unknown task status: %s", t.Status)
			}
		}
	}
}

// Report decodes the result of a completed workload task.
func (t *Task) Report() (*driver.Report, error) {
	if len(t.Result) == 0 {
		return nil, fmt.Errorf("task %s has no result", t.ID)
	}
	var r driver.Report
	if err := json.Unmarshal(t.Result, &r); err != nil {
		return nil, fmt.Errorf("invalid report for task %s: %w", t.ID, err)
	}
	return &r, nil
}
