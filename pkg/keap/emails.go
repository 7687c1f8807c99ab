package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListEmails calls GET /emails (contact_id, email, since_sent_date, until_sent_date, limit, offset).
func (c *Client) ListEmails(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/emails", params)
}

func (c *Client) GetEmail(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/emails/%d", id), nil)
}

// CreateEmailRecord logs an email sent outside Keap against a contact.
func (c *Client) CreateEmailRecord(ctx context.Context, record any) (json.RawMessage, error) {
	return c.post(ctx, "/emails", record)
}

func (c *Client) DeleteEmail(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/emails/%d", id), nil)
}

// SendEmail queues an email to one or more contacts.
func (c *Client) SendEmail(ctx context.Context, email any) (json.RawMessage, error) {
	return c.post(ctx, "/emails/queue", email)
}
