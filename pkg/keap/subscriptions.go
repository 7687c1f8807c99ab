package keap

import (
	"context"
	"encoding/json"
)

// ListSubscriptions calls GET /subscriptions (contact_id, limit, offset).
func (c *Client) ListSubscriptions(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/subscriptions", params)
}

// CreateSubscription starts a contact on a product subscription plan.
func (c *Client) CreateSubscription(ctx context.Context, subscription any) (json.RawMessage, error) {
	return c.post(ctx, "/subscriptions", subscription)
}

func (c *Client) GetSubscriptionModel(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/subscriptions/model", nil)
}
