package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListFiles calls GET /files (contact_id, name, type, permission, viewable, limit, offset).
func (c *Client) ListFiles(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/files", params)
}

// GetFile fetches file metadata; withData includes the base64 file_data.
func (c *Client) GetFile(ctx context.Context, id int64, withData bool) (json.RawMessage, error) {
	var params Params
	if withData {
		params = optionalProperties([]string{"file_data"})
	}
	return c.get(ctx, fmt.Sprintf("/files/%d", id), params)
}

// UploadFile posts a file record; the body carries base64 file_data.
func (c *Client) UploadFile(ctx context.Context, file any) (json.RawMessage, error) {
	return c.post(ctx, "/files", file)
}

func (c *Client) ReplaceFile(ctx context.Context, id int64, file any) (json.RawMessage, error) {
	return c.put(ctx, fmt.Sprintf("/files/%d", id), file)
}

func (c *Client) DeleteFile(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/files/%d", id), nil)
}
