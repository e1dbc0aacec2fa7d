package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client for the given bind address.
func NewClient(baseURL string) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(trimmed, "http") {
		trimmed = "http://" + trimmed
	}
	return &Client{
		baseURL: trimmed,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.getJSON(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tasks lists known tasks, newest first. With history set, journaled
// tasks from previous daemon runs are included.
func (c *Client) Tasks(ctx context.Context, history bool) ([]TaskView, error) {
	path := "/api/tasks"
	if history {
		path += "?history=true"
	}
	var out []TaskView
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Task fetches a single task record.
func (c *Client) Task(ctx context.Context, id string) (*TaskView, error) {
	var out TaskView
	if err := c.getJSON(ctx, "/api/tasks/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelTask requests cancellation of a task.
func (c *Client) CancelTask(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/tasks/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// BuildDataset triggers a dataset build from the given source folders.
func (c *Client) BuildDataset(ctx context.Context, folders []string, ratio float64) (*BuildResult, error) {
	body := map[string]any{"folders": folders, "train_ratio": ratio}
	var out BuildResult
	if err := c.postJSON(ctx, "/api/dataset/build", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartTraining enqueues a training task and returns its id.
func (c *Client) StartTraining(ctx context.Context, params map[string]any) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := c.postJSON(ctx, "/api/training/start", params, &out); err != nil {
		return "", err
	}
	return out.TaskID, nil
}

// StopTraining terminates an in-flight training run.
func (c *Client) StopTraining(ctx context.Context) error {
	return c.postJSON(ctx, "/api/training/stop", nil, nil)
}

// TrainingStatus fetches orchestrator status.
func (c *Client) TrainingStatus(ctx context.Context) (*TrainingStatusView, error) {
	var out TrainingStatusView
	if err := c.getJSON(ctx, "/api/training/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Classify uploads an image for sex classification.
func (c *Client) Classify(ctx context.Context, imagePath string, confidence float64) (*VerdictView, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if confidence > 0 {
		_ = writer.WriteField("confidence", fmt.Sprintf("%.2f", confidence))
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/classify", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out VerdictView
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var er ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&er); decodeErr == nil && er.Error != "" {
			if er.Kind == "" {
				er.Kind = KindInternal
			}
			return &Error{Kind: er.Kind, Message: er.Error}
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
