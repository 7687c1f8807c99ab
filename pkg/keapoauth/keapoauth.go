package keapoauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hwalton/keap-console/pkg/keap"
)

// Keap OAuth endpoints.
const (
	AuthURL      = "https://accounts.infusionsoft.com/app/oauth/authorize"
	TokenURL     = "https://api.infusionsoft.com/token"
	DefaultScope = "full"
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	AuthURL      string
	TokenURL     string
}

// Error is a token endpoint failure.
type Error struct {
	Op          string
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("keapoauth: %s: %v", e.Op, e.Err)
	}
	msg := fmt.Sprintf("keapoauth: %s failed: status=%d", e.Op, e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Rejected reports whether Keap refused the grant (invalid code or refresh token).
func (e *Error) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Provider performs the Keap authorization-code flow.
type Provider struct {
	cfg    *oauth2.Config
	client *http.Client
	log    *slog.Logger
}

// NewProvider builds a provider. Empty endpoint URLs fall back to Keap's.
func NewProvider(cfg Config, httpClient *http.Client, logger *slog.Logger) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	authURL, tokenURL, scope := cfg.AuthURL, cfg.TokenURL, cfg.Scope
	if authURL == "" {
		authURL = AuthURL
	}
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	if scope == "" {
		scope = DefaultScope
	}
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client: httpClient,
		log:    logger.With("adapter", "keapoauth"),
	}
}

// AuthCodeURL builds the Keap authorize URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for the initial token pair.
func (p *Provider) Exchange(ctx context.Context, code string) (keap.TokenPair, error) {
	tok, err := p.cfg.Exchange(p.withClient(ctx), code)
	if err != nil {
		p.log.WarnContext(ctx, "code exchange failed", "error", err)
		return keap.TokenPair{}, wrap("exchange", err)
	}
	p.log.InfoContext(ctx, "code exchanged")
	return toPair(tok), nil
}

// Refresh exchanges a refresh token for a new pair. Keap rotates the
// refresh token on every call.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (keap.TokenPair, error) {
	if refreshToken == "" {
		return keap.TokenPair{}, &Error{Op: "refresh", StatusCode: http.StatusBadRequest, Code: "invalid_request", Description: "refresh_token is required"}
	}
	tok, err := p.cfg.TokenSource(p.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		p.log.WarnContext(ctx, "token refresh failed", "error", err)
		return keap.TokenPair{}, wrap("refresh", err)
	}
	p.log.DebugContext(ctx, "token refreshed")
	return toPair(tok), nil
}

func (p *Provider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

func wrap(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		e := &Error{Op: op, Code: re.ErrorCode, Description: re.ErrorDescription, Err: err}
		if re.Response != nil {
			e.StatusCode = re.Response.StatusCode
		}
		return e
	}
	return &Error{Op: op, Err: err}
}

func toPair(tok *oauth2.Token) keap.TokenPair {
	pair := keap.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
	}
	if pair.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		pair.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		pair.Scope = scope
	}
	return pair
}
