package keap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Sender dispatches API requests. *Transport is the production implementation.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Client exposes the Keap REST operations. Every method returns the decoded
// body unchanged, or an *APIError.
type Client struct {
	sender Sender
	log    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient wraps sender.
func NewClient(sender Sender, opts ...ClientOption) *Client {
	c := &Client{sender: sender, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "keap_client")
	return c
}

// Decode unmarshals a Client result into T, passing errors through.
func Decode[T any](raw json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &APIError{Message: "decode response: " + err.Error(), Err: err}
	}
	return out, nil
}

// FetchPage follows a next/previous URL from a list response as is.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (json.RawMessage, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return nil, &APIError{Message: fmt.Sprintf("page url %q is not absolute", pageURL)}
	}
	return c.do(ctx, http.MethodGet, pageURL, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params Params, body any) (json.RawMessage, error) {
	req := Request{Method: method, Path: path, Body: body}
	if len(params) > 0 {
		req.Query = params.Values()
	}
	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		apiErr := toAPIError(err)
		c.log.DebugContext(ctx, "keap call failed", "method", method, "path", path, "status", apiErr.Status, "error", apiErr.Message)
		return nil, apiErr
	}
	b := bytes.TrimSpace(resp.Body)
	if len(b) == 0 {
		return nil, nil
	}
	if !json.Valid(b) {
		return nil, &APIError{Status: resp.StatusCode, Message: "response is not valid JSON"}
	}
	return json.RawMessage(b), nil
}

func (c *Client) get(ctx context.Context, path string, params Params) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) delete(ctx context.Context, path string, params Params) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, params, nil)
}

// optionalProperties builds the optional_properties query Keap uses to
// include extra fields on single-record reads.
func optionalProperties(props []string) Params {
	if len(props) == 0 {
		return nil
	}
	return Params{"optional_properties": strings.Join(props, ",")}
}
