package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hwalton/keap-console/pkg/keap"
)

// Validate checks the settings both binaries rely on. Load calls it.
func (c *Config) Validate() error {
	if err := validateAbsURL(c.Keap.APIBaseURL); err != nil {
		return fmt.Errorf("keap.api_base_url: %w", err)
	}
	if err := validateAbsURL(c.Backend.URL); err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if _, err := c.Session.Policy(); err != nil {
		return fmt.Errorf("session.refresh_failure_policy: %w", err)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "memory", "file":
	case "postgres":
		if c.Store.DatabaseDSN == "" {
			return fmt.Errorf("store.database_dsn is required for the postgres driver")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, file, postgres, redis (got %q)", c.Store.Driver)
	}
	if c.Store.Slot == "" {
		return fmt.Errorf("store.slot must not be empty")
	}
	if c.CORS.AllowCredentials && hasWildcardOrigin(c.CORS.AllowedOrigins) {
		return fmt.Errorf("cors.allowed_origins must list explicit origins when cors.allow_credentials is set")
	}
	return nil
}

func hasWildcardOrigin(origins string) bool {
	for _, o := range strings.Split(origins, ",") {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// ValidateServer adds the rules only the broker needs.
func (c *Config) ValidateServer() error {
	if c.Keap.ClientID == "" || c.Keap.ClientSecret == "" {
		return fmt.Errorf("keap.client_id and keap.client_secret are required")
	}
	if err := validateAbsURL(c.Keap.RedirectURI); err != nil {
		return fmt.Errorf("keap.redirect_uri: %w", err)
	}
	if len(c.Auth.StateSecret) < 32 {
		return fmt.Errorf("auth.state_secret must be at least 32 characters (got %d)", len(c.Auth.StateSecret))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Policy parses RefreshFailurePolicy.
func (s SessionConfig) Policy() (keap.LogoutPolicy, error) {
	return keap.ParseLogoutPolicy(s.RefreshFailurePolicy)
}

// Addr is the broker listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func validateAbsURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL (got %q)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
