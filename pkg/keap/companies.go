package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListCompanies calls GET /companies (company_name, limit, offset, order, optional_properties).
func (c *Client) ListCompanies(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/companies", params)
}

func (c *Client) GetCompany(ctx context.Context, id int64, optional ...string) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/companies/%d", id), optionalProperties(optional))
}

func (c *Client) CreateCompany(ctx context.Context, company any) (json.RawMessage, error) {
	return c.post(ctx, "/companies", company)
}

func (c *Client) UpdateCompany(ctx context.Context, id int64, fields any) (json.RawMessage, error) {
	return c.patch(ctx, fmt.Sprintf("/companies/%d", id), fields)
}

func (c *Client) GetCompanyModel(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/companies/model", nil)
}
