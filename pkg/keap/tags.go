package keap

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ListTags calls GET /tags (category, name, limit, offset).
func (c *Client) ListTags(ctx context.Context, params Params) (json.RawMessage, error) {
	return c.get(ctx, "/tags", params)
}

func (c *Client) GetTag(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/tags/%d", id), nil)
}

func (c *Client) CreateTag(ctx context.Context, tag any) (json.RawMessage, error) {
	return c.post(ctx, "/tags", tag)
}

func (c *Client) CreateTagCategory(ctx context.Context, category any) (json.RawMessage, error) {
	return c.post(ctx, "/tags/categories", category)
}

// ListTaggedContacts lists contacts carrying the tag.
func (c *Client) ListTaggedContacts(ctx context.Context, tagID int64, params Params) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/tags/%d/contacts", tagID), params)
}

// ApplyTagToContacts applies one tag to many contacts.
func (c *Client) ApplyTagToContacts(ctx context.Context, tagID int64, contactIDs []int64) (json.RawMessage, error) {
	return c.post(ctx, fmt.Sprintf("/tags/%d/contacts", tagID), map[string][]int64{"ids": contactIDs})
}

// RemoveTagFromContacts removes one tag from many contacts. Keap takes the
// ids as a single comma-separated query value.
func (c *Client) RemoveTagFromContacts(ctx context.Context, tagID int64, contactIDs []int64) (json.RawMessage, error) {
	if len(contactIDs) == 0 {
		return nil, &APIError{Message: "remove tag from contacts: at least one contact id is required"}
	}
	ids := make([]string, 0, len(contactIDs))
	for _, id := range contactIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return c.delete(ctx, fmt.Sprintf("/tags/%d/contacts", tagID), Params{"ids": strings.Join(ids, ",")})
}
