// Package client is the HTTP client for the taskd API. It implements
// loginflow.Authenticator and syncview.Source for terminal and test clients.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskmanagerx/internal/loginflow"
	"taskmanagerx/internal/model"
)

type APIClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Token returns the current session token, if any.
func (c *APIClient) Token() string { return c.token }

// SetToken resumes a previously issued session.
func (c *APIClient) SetToken(token string) { c.token = token }

type apiError struct {
	Error string `json:"error"`
}

// do sends a JSON request and decodes the response into out (which may be
// nil). Non-2xx responses become errors carrying the server's message.
func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type sessionResponse struct {
	Token      string `json:"token"`
	UserID     int    `json:"user_id"`
	Registered bool   `json:"registered"`
	Name       string `json:"name"`
}

func (r sessionResponse) toSession() *loginflow.Session {
	return &loginflow.Session{
		Token:      r.Token,
		UserID:     r.UserID,
		Registered: r.Registered,
		Name:       r.Name,
	}
}

// SendOTP implements loginflow.Authenticator.
func (c *APIClient) SendOTP(ctx context.Context, phone string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp/send", map[string]string{"phone": phone}, nil)
}

// VerifyOTP implements loginflow.Authenticator and adopts the issued token.
func (c *APIClient) VerifyOTP(ctx context.Context, phone, code string) (*loginflow.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/otp/verify", map[string]string{
		"phone": phone,
		"code":  code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.toSession(), nil
}

// Register implements loginflow.Authenticator using the verified session.
func (c *APIClient) Register(ctx context.Context, name string, referrerID *int) (*loginflow.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]any{
		"name":        name,
		"referrer_id": referrerID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.toSession(), nil
}

type pageResponse struct {
	Tasks      []model.Task `json:"tasks"`
	Count      int          `json:"count"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	PageSize   int          `json:"page_size"`
}

func (c *APIClient) fetchPage(ctx context.Context, filter model.TaskFilter, page, pageSize int) (*pageResponse, error) {
	var resp pageResponse
	path := fmt.Sprintf("/tasks?filter=%s&page=%d&page_size=%d", filter, page, pageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CountTasks implements syncview.Source.
func (c *APIClient) CountTasks(ctx context.Context, filter model.TaskFilter) (int, error) {
	// A minimal page fetch carries the exact count.
	resp, err := c.fetchPage(ctx, filter, 1, 1)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// FetchTasks implements syncview.Source.
func (c *APIClient) FetchTasks(ctx context.Context, filter model.TaskFilter, offset, limit int) ([]model.Task, error) {
	page := offset/limit + 1
	resp, err := c.fetchPage(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask implements syncview.Source.
func (c *APIClient) CreateTask(ctx context.Context, title, description string, dueDate *time.Time) error {
	body := map[string]any{
		"title":       title,
		"description": description,
	}
	if dueDate != nil {
		body["due_date"] = dueDate.Format("2006-01-02")
	}
	return c.do(ctx, http.MethodPost, "/tasks", body, nil)
}

// UpdateTask implements syncview.Source.
func (c *APIClient) UpdateTask(ctx context.Context, taskID int, patch model.TaskPatch) error {
	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		body["due_date"] = patch.DueDate.Format("2006-01-02")
	}
	if patch.IsDone != nil {
		body["is_done"] = *patch.IsDone
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d", taskID), body, nil)
}

// DeleteTask implements syncview.Source.
func (c *APIClient) DeleteTask(ctx context.Context, taskID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", taskID), nil, nil)
}

// SetTaskDone implements syncview.Source.
func (c *APIClient) SetTaskDone(ctx context.Context, taskID int, done bool) error {
	// The toggle endpoint negates the value it is given.
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/toggle", taskID), map[string]bool{
		"is_done": !done,
	}, nil)
}
