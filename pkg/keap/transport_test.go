package keap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRefresher counts calls and returns a fixed result.
type fakeRefresher struct {
	calls atomic.Int32
	delay time.Duration
	pair  TokenPair
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, _ string) (TokenPair, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return TokenPair{}, ctx.Err()
		}
	}
	return f.pair, f.err
}

// newBroker serves the refresh endpoint with status and pair, counting calls.
func newBroker(t *testing.T, status int, pair TokenPair) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RefreshPath || r.Method != http.MethodPost {
			t.Errorf("unexpected broker call %s %s", r.Method, r.URL.Path)
		}
		calls.Add(1)
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken == "" {
			t.Errorf("refresh called without refresh_token")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":"refresh failed"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(pair)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestTransport(t *testing.T, baseURL string, store TokenStore, r Refresher, opts ...TransportOption) *Transport {
	t.Helper()
	opts = append([]TransportOption{WithLogger(newTestLogger())}, opts...)
	tr, err := NewTransport(baseURL, store, r, opts...)
	require.NoError(t, err)
	return tr
}

var oldPair = TokenPair{AccessToken: "old-access", RefreshToken: "old-refresh"}
var newPair = TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 86400}

func TestSend_AttachesSameBearerEachTime(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var seen []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	tr := newTestTransport(t, upstream.URL, NewMemoryStore(oldPair), &fakeRefresher{})
	for i := 0; i < 2; i++ {
		_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
		require.NoError(t, err)
	}
	require.Len(t, seen, 2)
	assert.Equal(t, "Bearer old-access", seen[0])
	assert.Equal(t, seen[0], seen[1])
}

func TestSend_NoTokenNoHeader(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no Authorization header, got %q", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	tr := newTestTransport(t, upstream.URL, NewMemoryStore(TokenPair{}), &fakeRefresher{})
	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	require.NoError(t, err)
}

func TestSend_Always401_StopsAfterOneRetry(t *testing.T) {
	t.Parallel()
	var upstreamCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid Access Token"}`))
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: newPair}
	store := NewMemoryStore(oldPair)
	tr := newTestTransport(t, upstream.URL, store, refresher)

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, int32(2), upstreamCalls.Load())
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestSend_RefreshThenRetrySucceeds(t *testing.T) {
	t.Parallel()
	var upstreamCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	broker, refreshCalls := newBroker(t, http.StatusOK, newPair)
	store := NewMemoryStore(oldPair)
	tr := newTestTransport(t, upstream.URL, store, NewBackend(broker.URL, broker.Client()))

	resp, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), upstreamCalls.Load())

	got, _ := store.Read(context.Background())
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
}

func TestSend_RefreshFailureClearsStore(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	broker, refreshCalls := newBroker(t, http.StatusInternalServerError, TokenPair{})
	store := NewMemoryStore(oldPair)
	var logouts atomic.Int32
	tr := newTestTransport(t, upstream.URL, store, NewBackend(broker.URL, broker.Client()),
		WithLogoutHook(func(context.Context, error) { logouts.Add(1) }),
	)

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusInternalServerError, be.StatusCode)
	assert.Equal(t, "refresh", be.Op)

	got, _ := store.Read(context.Background())
	assert.True(t, got.Empty())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(1), logouts.Load())
}

func TestSend_LogoutOnRejectionPolicy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		brokerCode  int
		wantCleared bool
	}{
		{name: "5xx keeps session", brokerCode: http.StatusBadGateway, wantCleared: false},
		{name: "4xx ends session", brokerCode: http.StatusUnauthorized, wantCleared: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer upstream.Close()

			broker, _ := newBroker(t, tt.brokerCode, TokenPair{})
			store := NewMemoryStore(oldPair)
			var logouts atomic.Int32
			tr := newTestTransport(t, upstream.URL, store, NewBackend(broker.URL, broker.Client()),
				WithLogoutPolicy(LogoutOnRejection),
				WithLogoutHook(func(context.Context, error) { logouts.Add(1) }),
			)

			_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/tags"})
			require.Error(t, err)

			got, _ := store.Read(context.Background())
			if tt.wantCleared {
				assert.True(t, got.Empty())
				assert.ErrorIs(t, err, ErrSessionExpired)
				assert.Equal(t, int32(1), logouts.Load())
			} else {
				assert.Equal(t, oldPair.AccessToken, got.AccessToken)
				assert.NotErrorIs(t, err, ErrSessionExpired)
				assert.Equal(t, int32(0), logouts.Load())
			}
		})
	}
}

func TestSend_MissingRefreshTokenEndsSession(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: newPair}
	store := NewMemoryStore(TokenPair{AccessToken: "only-access"})
	tr := newTestTransport(t, upstream.URL, store, refresher, WithLogoutPolicy(LogoutOnRejection))

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), refresher.calls.Load())
	got, _ := store.Read(context.Background())
	assert.True(t, got.Empty())
}

func TestSend_RefreshWithoutAccessTokenFails(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: TokenPair{RefreshToken: "r"}}
	tr := newTestTransport(t, upstream.URL, NewMemoryStore(oldPair), refresher)

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	assert.ErrorIs(t, err, ErrInvalidTokenResponse)
}

func TestSend_ForbiddenNeverRefreshes(t *testing.T) {
	t.Parallel()
	var upstreamCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: newPair}
	store := NewMemoryStore(oldPair)
	tr := newTestTransport(t, upstream.URL, store, refresher)

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, int32(1), upstreamCalls.Load())
	assert.Equal(t, int32(0), refresher.calls.Load())

	got, _ := store.Read(context.Background())
	assert.Equal(t, oldPair.AccessToken, got.AccessToken)
}

func TestSend_NetworkErrorNeverRefreshes(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	refresher := &fakeRefresher{pair: newPair}
	tr := newTestTransport(t, url, NewMemoryStore(oldPair), refresher)

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestSend_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: newPair, delay: 100 * time.Millisecond}
	tr := newTestTransport(t, upstream.URL, NewMemoryStore(oldPair), refresher)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestSend_CallerTimeoutDoesNotEndSharedRefresh(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: newPair, delay: 200 * time.Millisecond}
	store := NewMemoryStore(oldPair)
	var logouts atomic.Int32
	tr := newTestTransport(t, upstream.URL, store, refresher,
		WithLogoutHook(func(context.Context, error) { logouts.Add(1) }))

	leaderCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var leaderErr, followerErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, leaderErr = tr.Send(leaderCtx, Request{Method: http.MethodGet, Path: "/contacts"})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_, followerErr = tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	}()
	wg.Wait()

	assert.ErrorIs(t, leaderErr, context.DeadlineExceeded)
	assert.NotErrorIs(t, leaderErr, ErrSessionExpired)
	assert.NoError(t, followerErr)
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Zero(t, logouts.Load())

	got, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newPair, got)
}

func TestSend_AlreadyRotatedTokenRetriesWithoutRefresh(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(oldPair)
	var seen []string
	var mu sync.Mutex
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		seen = append(seen, auth)
		mu.Unlock()
		if auth == "Bearer old-access" {
			// another request finished a refresh while this one was in flight
			_ = store.Write(context.Background(), newPair)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	refresher := &fakeRefresher{pair: TokenPair{AccessToken: "unused"}}
	tr := newTestTransport(t, upstream.URL, store, refresher)

	resp, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/contacts"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, refresher.calls.Load())
	assert.Equal(t, []string{"Bearer old-access", "Bearer new-access"}, seen)
}

func TestSend_RetryResendsBody(t *testing.T) {
	t.Parallel()
	var bodies []string
	var mu sync.Mutex
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		_, _ = w.Write(b)
	}))
	defer upstream.Close()

	tr := newTestTransport(t, upstream.URL, NewMemoryStore(oldPair), &fakeRefresher{pair: newPair})
	_, err := tr.Send(context.Background(), Request{
		Method: http.MethodPatch,
		Path:   "/contacts/42",
		Body:   map[string]string{"email": "a@b.com"},
	})
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
	assert.JSONEq(t, `{"email":"a@b.com"}`, bodies[1])
}

func TestSend_AbsoluteURLUsedVerbatim(t *testing.T) {
	t.Parallel()
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	tr := newTestTransport(t, "https://api.example.invalid/crm/rest/v1", NewMemoryStore(oldPair), &fakeRefresher{},
		WithHTTPClient(upstream.Client()),
	)
	_, err := tr.Send(context.Background(), Request{
		Method: http.MethodGet,
		Path:   upstream.URL + "/crm/rest/v1/contacts/?limit=10&offset=10",
		Query:  map[string][]string{"ignored": {"1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "limit=10&offset=10", gotQuery)
}

func TestNewTransport_Validation(t *testing.T) {
	t.Parallel()
	_, err := NewTransport("not a url", NewMemoryStore(TokenPair{}), &fakeRefresher{})
	assert.Error(t, err)
	_, err = NewTransport("", nil, &fakeRefresher{})
	assert.Error(t, err)
	_, err = NewTransport("", NewMemoryStore(TokenPair{}), nil)
	assert.Error(t, err)
	tr, err := NewTransport("", NewMemoryStore(TokenPair{}), &fakeRefresher{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, tr.baseURL.String())
}

func TestParseLogoutPolicy(t *testing.T) {
	t.Parallel()
	p, err := ParseLogoutPolicy("always")
	require.NoError(t, err)
	assert.Equal(t, LogoutOnAnyFailure, p)
	p, err = ParseLogoutPolicy("Rejected")
	require.NoError(t, err)
	assert.Equal(t, LogoutOnRejection, p)
	_, err = ParseLogoutPolicy("sometimes")
	assert.Error(t, err)
}
