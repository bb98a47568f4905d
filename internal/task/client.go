package task

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gokatarajesh/duel-platform/internal/duel"
)

const listPath = "/task/list"

// Client fetches the task list from the task service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ duel.TaskCatalog = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type taskDTO struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Type   string   `json:"type"`
	Level  int      `json:"level"`
	Topics []string `json:"topics"`
}

type listResponse struct {
	Status string    `json:"status"`
	Error  string    `json:"error"`
	Tasks  []taskDTO `json:"tasks"`
}

// ListTasks returns every task the service knows about.
func (c *Client) ListTasks(ctx context.Context) ([]duel.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("task service non-200: %d", resp.StatusCode)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("task service: %s", payload.Error)
	}

	tasks := make([]duel.Task, 0, len(payload.Tasks))
	for _, t := range payload.Tasks {
		if t.ID == "" {
			continue
		}
		topics := t.Topics
		if topics == nil {
			topics = []string{}
		}
		tasks = append(tasks, duel.Task{ID: t.ID, Level: t.Level, Topics: topics})
	}
	return tasks, nil
}
