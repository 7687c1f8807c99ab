package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListAffiliates calls GET /affiliates (code, name, status, contact_id, limit, offset).
func (c *Client) ListAffiliates(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/affiliates", params)
}

func (c *Client) GetAffiliate(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/affiliates/%d", id), nil)
}

func (c *Client) CreateAffiliate(ctx context.Context, affiliate any) (json.RawMessage, error) {
	return c.post(ctx, "/affiliates", affiliate)
}

// ListAffiliateCommissions calls GET /affiliates/commissions (affiliateId, since, until, limit, offset).
// Commission totals are computed by Keap.
func (c *Client) ListAffiliateCommissions(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/affiliates/commissions", params)
}

func (c *Client) GetAffiliateModel(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/affiliates/model", nil)
}
