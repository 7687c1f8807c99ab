package keap

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListContacts calls GET /contacts. Useful params: email, given_name,
// family_name, limit, offset, order, order_direction, since, until.
func (c *Client) ListContacts(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/contacts", params)
}

// GetContact fetches one contact, optionally including extra properties
// such as "custom_fields" or "lead_source_id".
func (c *Client) GetContact(ctx context.Context, id int64, optional ...string) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/contacts/%d", id), optionalProperties(optional))
}

func (c *Client) CreateContact(ctx context.Context, contact any) (json.RawMessage, error) {
	return c.post(ctx, "/contacts", contact)
}

// CreateOrUpdateContact upserts by the duplicate_option in the body (Email or EmailAndName).
func (c *Client) CreateOrUpdateContact(ctx context.Context, contact any) (json.RawMessage, error) {
	return c.put(ctx, "/contacts", contact)
}

// UpdateContact sends a partial update; only supplied fields change.
func (c *Client) UpdateContact(ctx context.Context, id int64, fields any) (json.RawMessage, error) {
	return c.patch(ctx, fmt.Sprintf("/contacts/%d", id), fields)
}

func (c *Client) DeleteContact(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/contacts/%d", id), nil)
}

// GetContactModel returns the contact schema including custom fields.
func (c *Client) GetContactModel(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/contacts/model", nil)
}

func (c *Client) ListContactEmails(ctx context.Context, contactID int64, params Params) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/contacts/%d/emails", contactID), params)
}

func (c *Client) CreateContactEmail(ctx context.Context, contactID int64, email any) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/contacts/%d/emails", contactID), email)
}

func (c *Client) ListContactTags(ctx context.Context, contactID int64, params Params) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/contacts/%d/tags", contactID), params)
}

// ApplyTagsToContact applies tagIDs to one contact.
func (c *Client) ApplyTagsToContact(ctx context.Context, contactID int64, tagIDs []int64) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/contacts/%d/tags", contactID), map[string][]int64{"tagIds": tagIDs})
}

func (c *Client) RemoveTagFromContact(ctx context.Context, contactID, tagID int64) (json.RawMessage, error) {
	return c.delete(ctx, fmt.Sprintf("/contacts/%d/tags/%d", contactID, tagID), nil)
}

// ListCreditCards lists the cards stored on a contact.
func (c *Client) ListCreditCards(ctx context.Context, contactID int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/contacts/%d/creditCards", contactID), nil)
}

func (c *Client) CreateCreditCard(ctx context.Context, contactID int64, card any) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/contacts/%d/creditCards", contactID), card)
}
