package keap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the Keap REST v1 root.
const DefaultBaseURL = "https://api.infusionsoft.com/crm/rest/v1"

// maxAuthRetries bounds how many times a request is re-sent after a 401.
const maxAuthRetries = 1

// refreshTimeout bounds a shared refresh independently of its callers.
const refreshTimeout = 30 * time.Second

// Request is one outbound API call. Path is relative to the transport's
// base URL unless it is an absolute http(s) URL, in which case it is used
// verbatim and Query is ignored.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// LogoutPolicy decides which refresh failures end the session.
type LogoutPolicy int

const (
	// LogoutOnAnyFailure clears the store on every refresh failure.
	LogoutOnAnyFailure LogoutPolicy = iota
	// LogoutOnRejection clears the store only when the refresh was refused
	// (4xx from the broker, or no refresh token). Transport failures and 5xx
	// keep the stored pair so a later call can try again.
	LogoutOnRejection
)

// ParseLogoutPolicy maps the configuration names "always" and "rejected".
func ParseLogoutPolicy(s string) (LogoutPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always", "any":
		return LogoutOnAnyFailure, nil
	case "rejected", "rejection":
		return LogoutOnRejection, nil
	}
	return 0, fmt.Errorf("keap: unknown logout policy %q", s)
}

// LogoutFunc is invoked once when a refresh failure ends the session.
type LogoutFunc func(ctx context.Context, cause error)

// Transport attaches the stored bearer token to API calls and recovers
// from a single expired-token 401 by refreshing and re-sending once.
type Transport struct {
	baseURL   *url.URL
	client    *http.Client
	store     TokenStore
	refresher Refresher
	policy    LogoutPolicy
	onLogout  LogoutFunc
	log       *slog.Logger

	refreshes singleflight.Group
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the default 30s-timeout client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.client = c }
}

// WithLogoutPolicy sets which refresh failures clear the session.
func WithLogoutPolicy(p LogoutPolicy) TransportOption {
	return func(t *Transport) { t.policy = p }
}

// WithLogoutHook registers fn to run when the session is cleared.
func WithLogoutHook(fn LogoutFunc) TransportOption {
	return func(t *Transport) { t.onLogout = fn }
}

// WithLogger sets the transport logger.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) { t.log = l }
}

// NewTransport builds a transport for baseURL (DefaultBaseURL when empty).
func NewTransport(baseURL string, store TokenStore, refresher Refresher, opts ...TransportOption) (*Transport, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("keap: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("keap: base url %q must be absolute", baseURL)
	}
	if store == nil {
		return nil, errors.New("keap: token store is required")
	}
	if refresher == nil {
		return nil, errors.New("keap: refresher is required")
	}
	t := &Transport{
		baseURL:   u,
		client:    &http.Client{Timeout: 30 * time.Second},
		store:     store,
		refresher: refresher,
		policy:    LogoutOnAnyFailure,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "keap_transport")
	return t, nil
}

// Send dispatches req. A 2xx response is returned as is; any other status
// comes back as *HTTPError. Only the first 401 triggers a refresh.
func (t *Transport) Send(ctx context.Context, req Request) (*Response, error) {
	return t.send(ctx, req, 0)
}

func (t *Transport) send(ctx context.Context, req Request, retries int) (*Response, error) {
	pair, err := t.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("keap: read token store: %w", err)
	}

	resp, target, err := t.dispatch(ctx, req, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && retries < maxAuthRetries {
		t.log.InfoContext(ctx, "access token rejected, refreshing", "method", req.Method, "url", target)
		if _, err := t.refresh(ctx, pair.AccessToken); err != nil {
			return nil, err
		}
		return t.send(ctx, req, retries+1)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Method: req.Method, URL: target, Body: resp.Body}
	}
	return resp, nil
}

func (t *Transport) resolve(req Request) (string, error) {
	if strings.HasPrefix(req.Path, "http://") || strings.HasPrefix(req.Path, "https://") {
		if _, err := url.Parse(req.Path); err != nil {
			return "", fmt.Errorf("keap: parse url: %w", err)
		}
		return req.Path, nil
	}
	u := *t.baseURL
	u.Path = t.baseURL.Path + "/" + strings.TrimLeft(req.Path, "/")
	u.RawQuery = ""
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String(), nil
}

// dispatch performs one HTTP round trip. A fresh *http.Request is built on
// every call so a retry never reuses a consumed body.
func (t *Transport) dispatch(ctx context.Context, req Request, accessToken string) (*Response, string, error) {
	target, err := t.resolve(req)
	if err != nil {
		return nil, "", err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, target, fmt.Errorf("keap: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, target, fmt.Errorf("keap: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.log.WarnContext(ctx, "keap request failed", "method", method, "url", target, "error", err)
		return nil, target, fmt.Errorf("keap: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, target, fmt.Errorf("keap: read response: %w", err)
	}
	t.log.DebugContext(ctx, "keap request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: b}, target, nil
}

// refresh obtains a usable access token after stale was rejected.
// Concurrent callers holding the same refresh token share one refresh call.
func (t *Transport) refresh(ctx context.Context, stale string) (TokenPair, error) {
	current, err := t.store.Read(ctx)
	if err != nil {
		return TokenPair{}, fmt.Errorf("keap: read token store: %w", err)
	}
	if current.AccessToken != "" && current.AccessToken != stale {
		// rotated by a concurrent request
		return current, nil
	}

	ch := t.refreshes.DoChan(current.RefreshToken, func() (any, error) {
		// the flight outlives any single caller; only its own timeout stops it
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		// a refresh may have completed between the read above and DoChan
		latest, err := t.store.Read(fctx)
		if err != nil {
			return TokenPair{}, fmt.Errorf("keap: read token store: %w", err)
		}
		if latest.AccessToken != "" && latest.AccessToken != stale {
			return latest, nil
		}
		return t.doRefresh(fctx, latest.RefreshToken)
	})

	select {
	case <-ctx.Done():
		return TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return TokenPair{}, res.Err
		}
		if res.Shared {
			t.log.DebugContext(ctx, "joined in-flight token refresh")
		}
		return res.Val.(TokenPair), nil
	}
}

func (t *Transport) doRefresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var (
		pair TokenPair
		err  error
	)
	if refreshToken == "" {
		err = ErrNoRefreshToken
	} else {
		pair, err = t.refresher.Refresh(ctx, refreshToken)
		if err == nil && pair.AccessToken == "" {
			err = ErrInvalidTokenResponse
		}
	}
	if err != nil {
		return TokenPair{}, t.refreshFailed(ctx, err)
	}

	if err := t.store.Write(ctx, pair); err != nil {
		return TokenPair{}, fmt.Errorf("keap: persist refreshed tokens: %w", err)
	}
	t.log.InfoContext(ctx, "access token refreshed", "expires_in", pair.ExpiresIn)
	return pair, nil
}

// refreshFailed applies the logout policy and returns the error the
// original request fails with.
func (t *Transport) refreshFailed(ctx context.Context, cause error) error {
	if !t.endsSession(cause) {
		t.log.WarnContext(ctx, "token refresh failed, keeping session", "error", cause)
		return cause
	}

	t.log.WarnContext(ctx, "token refresh failed, clearing session", "error", cause)
	if err := t.store.Clear(ctx); err != nil {
		t.log.ErrorContext(ctx, "clear token store", "error", err)
	}
	if t.onLogout != nil {
		t.onLogout(ctx, cause)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

func (t *Transport) endsSession(cause error) bool {
	if t.policy == LogoutOnAnyFailure {
		return true
	}
	if errors.Is(cause, ErrNoRefreshToken) {
		return true
	}
	var be *BackendError
	return errors.As(cause, &be) && be.Rejected()
}
