package keap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Broker endpoint paths.
const (
	ExchangePath  = "/api/auth/keap"
	RefreshPath   = "/api/auth/keap/refresh"
	AuthorizePath = "/api/auth/keap/authorize"
)

// Backend talks to the first-party token broker, which holds the OAuth
// client secret. It implements Refresher.
type Backend struct {
	baseURL string
	client  *http.Client
}

// NewBackend returns a broker client. A nil httpClient gets a 15s timeout.
func NewBackend(baseURL string, httpClient *http.Client) *Backend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Backend{baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}
}

// AuthorizeURL is where a user starts the Keap login.
func (b *Backend) AuthorizeURL() string {
	return b.baseURL + AuthorizePath
}

// Refresh exchanges refreshToken for a new pair.
func (b *Backend) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return b.post(ctx, "refresh", RefreshPath, map[string]string{"refresh_token": refreshToken})
}

// Exchange trades an authorization code for the initial pair.
func (b *Backend) Exchange(ctx context.Context, code string) (TokenPair, error) {
	return b.post(ctx, "exchange", ExchangePath, map[string]string{"code": code})
}

func (b *Backend) post(ctx context.Context, op, path string, payload any) (TokenPair, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return TokenPair{}, &BackendError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, &BackendError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return TokenPair{}, &BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenPair{}, &BackendError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenPair{}, &BackendError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, raw),
		}
	}

	var pair TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return TokenPair{}, &BackendError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode token pair: %w", err)}
	}
	return pair, nil
}
