package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hwalton/keap-console/internal/config"
)

func TestLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := chimw.RequestID(Logger(logger)(handler))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/keap/refresh", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"http.request", "POST", "/api/auth/keap/refresh", `"status":200`, "request_id", "INFO"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got %q", want, out)
		}
	}
}

func TestLogger_ServerErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	Logger(logger)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if out := buf.String(); !strings.Contains(out, "ERROR") || !strings.Contains(out, `"status":502`) {
		t.Errorf("expected ERROR level with status 502, got %q", out)
	}
}

func TestLogger_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	Logger(logger)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if !strings.Contains(buf.String(), `"status":200`) {
		t.Errorf("expected status 200, got %q", buf.String())
	}
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: "http://localhost:5173, https://console.example.com",
		AllowedMethods: "GET,POST,OPTIONS",
		AllowedHeaders: "Authorization,Content-Type",
		MaxAge:         600,
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := CORS(cfg)(next)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/keap", nil)
		req.Header.Set("Origin", "https://console.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
			t.Errorf("allow-origin = %q", got)
		}
		if rec.Code != http.StatusTeapot {
			t.Errorf("expected request to reach handler, got %d", rec.Code)
		}
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/keap", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no allow-origin, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/keap/refresh", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Max-Age") != "600" {
			t.Errorf("max-age = %q", rec.Header().Get("Access-Control-Max-Age"))
		}
	})
}

func TestCORS_WildcardNeverAllowsCredentials(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins:   "https://console.example.com,*",
		AllowedMethods:   "GET,POST,OPTIONS",
		AllowedHeaders:   "Content-Type",
		AllowCredentials: true,
	}
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		origin     string
		wantOrigin string
		wantCreds  string
	}{
		{"https://console.example.com", "https://console.example.com", "true"},
		{"https://evil.example.net", "*", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
			t.Errorf("%s: Allow-Origin = %q, want %q", tt.origin, got, tt.wantOrigin)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
			t.Errorf("%s: Allow-Credentials = %q, want %q", tt.origin, got, tt.wantCreds)
		}
	}
}
