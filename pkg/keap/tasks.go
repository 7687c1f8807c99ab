package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListTasks calls GET /tasks (contact_id, completed, due_date filters, user_id, limit, offset).
func (c *Client) ListTasks(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/tasks", params)
}

// SearchTasks calls GET /tasks/search.
func (c *Client) SearchTasks(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/tasks/search", params)
}

func (c *Client) GetTask(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/tasks/%d", id), nil)
}

func (c *Client) CreateTask(ctx context.Context, task any) (json.RawMessage, error) {
	return c.post(ctx, "/tasks", task)
}

func (c *Client) UpdateTask(ctx context.Context, id int64, fields any) (json.RawMessage, error) {
	return c.patch(ctx, fmt.Sprintf("/tasks/%d", id), fields)
}

func (c *Client) DeleteTask(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/tasks/%d", id), nil)
}
