package keap

import (
	"context"
	"encoding/json"
)

func (c *Client) ListUsers(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/users", params)
}

func (c *Client) CreateUser(ctx context.Context, user any) (json.RawMessage, error) {
	return c.post(ctx, "/users", user)
}

// GetUserInfo returns the user the current access token belongs to.
func (c *Client) GetUserInfo(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/oauth/connect/userinfo", nil)
}

func (c *Client) GetAccountProfile(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/account/profile", nil)
}
