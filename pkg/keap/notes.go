package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListNotes calls GET /notes (contact_id, user_id, limit, offset).
func (c *Client) ListNotes(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/notes", params)
}

func (c *Client) GetNote(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/notes/%d", id), nil)
}

func (c *Client) CreateNote(ctx context.Context, note any) (json.RawMessage, error) {
	return c.post(ctx, "/notes", note)
}

func (c *Client) UpdateNote(ctx context.Context, id int64, fields any) (json.RawMessage, error) {
	return c.patch(ctx, fmt.Sprintf("/notes/%d", id), fields)
}

func (c *Client) DeleteNote(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/notes/%d", id), nil)
}
