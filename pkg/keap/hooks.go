package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// Hook is the body Keap expects when subscribing to an event.
type Hook struct {
	EventKey string `json:"eventKey"`
	HookURL  string `json:"hookUrl"`
}

// ListHookEventTypes returns the event keys a hook can subscribe to.
func (c *Client) ListHookEventTypes(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/hooks/event_keys", nil)
}

func (c *Client) ListHooks(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/hooks", nil)
}

func (c *Client) GetHook(ctx context.Context, key int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/hooks/%d", key), nil)
}

// CreateHook subscribes hook.HookURL to hook.EventKey. Keap verifies the
// URL before delivering events.
func (c *Client) CreateHook(ctx context.Context, hook Hook) (json.RawMessage, error) {
	return c.post(ctx, "/hooks", hook)
}

func (c *Client) UpdateHook(ctx context.Context, key int64, hook Hook) (json.RawMessage, error) {
	return c.put(ctx, fmt.Sprintf("/hooks/%d", key), hook)
}

func (c *Client) DeleteHook(ctx context.Context, key int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/hooks/%d", key), nil)
}

// VerifyHook asks Keap to re-run the immediate verification handshake.
func (c *Client) VerifyHook(ctx context.Context, key int64) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/hooks/%d/verify", key), nil)
}

// VerifyHookDelayed marks the hook for delayed verification.
func (c *Client) VerifyHookDelayed(ctx context.Context, key int64, verified bool) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/hooks/%d/delayedVerify", key), map[string]bool{"verified": verified})
}
