package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListProducts calls GET /products (active, limit, offset).
func (c *Client) ListProducts(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/products", params)
}

func (c *Client) GetProduct(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/products/%d", id), nil)
}

func (c *Client) CreateProduct(ctx context.Context, product any) (json.RawMessage, error) {
	return c.post(ctx, "/products", product)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, fields any) (json.RawMessage, error) {
	return c.patch(ctx, fmt.Sprintf("/products/%d", id), fields)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/products/%d", id), nil)
}

// CreateProductSubscription adds a subscription plan to a product.
func (c *Client) CreateProductSubscription(ctx context.Context, productID int64, plan any) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/products/%d/subscriptions", productID), plan)
}

func (c *Client) GetProductSubscription(ctx context.Context, productID, planID int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/products/%d/subscriptions/%d", productID, planID), nil)
}

func (c *Client) DeleteProductSubscription(ctx context.Context, productID, planID int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/products/%d/subscriptions/%d", productID, planID), nil)
}
