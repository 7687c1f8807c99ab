package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hwalton/keap-console/internal/config"
	"github.com/hwalton/keap-console/internal/store"
	"github.com/hwalton/keap-console/pkg/keap"
)

// ErrUsage marks bad command-line arguments.
var ErrUsage = errors.New("usage")

// App carries what every command needs.
type App struct {
	cfg     *config.Config
	store   keap.TokenStore
	backend *keap.Backend
	client  *keap.Client
	out     io.Writer
	log     *slog.Logger
}

// New wires the backend, transport and domain client around tokens.
func New(cfg *config.Config, tokens keap.TokenStore, logger *slog.Logger, out io.Writer) (*App, error) {
	policy, err := cfg.Session.Policy()
	if err != nil {
		return nil, err
	}
	backend := keap.NewBackend(cfg.Backend.URL, &http.Client{Timeout: cfg.Backend.HTTPTimeout})

	transport, err := keap.NewTransport(cfg.Keap.APIBaseURL, tokens, backend,
		keap.WithHTTPClient(&http.Client{Timeout: cfg.Keap.HTTPTimeout}),
		keap.WithLogoutPolicy(policy),
		keap.WithLogoutHook(func(ctx context.Context, cause error) {
			logger.WarnContext(ctx, "keap session expired, run `keapctl login-url` to sign in again", "cause", cause)
		}),
		keap.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		store:   tokens,
		backend: backend,
		client:  keap.NewClient(transport, keap.WithClientLogger(logger)),
		out:     out,
		log:     logger,
	}, nil
}

// Migrate applies the token_slots schema to DATABASE_URL.
func (a *App) Migrate(ctx context.Context, _ []string) error {
	if a.cfg.Store.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	applied, err := store.Migrate(ctx, a.cfg.Store.DatabaseDSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "applied %d migration(s)\n", len(applied))
	return nil
}

// LoginURL prints the broker URL that starts the consent flow.
func (a *App) LoginURL(_ context.Context, _ []string) error {
	fmt.Fprintln(a.out, a.backend.AuthorizeURL())
	return nil
}

// Login exchanges an authorization code through the broker and stores the pair.
func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%w: login <code>", ErrUsage)
	}
	pair, err := a.backend.Exchange(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	if err := a.store.Write(ctx, pair); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	fmt.Fprintln(a.out, "logged in")
	return nil
}

// Logout clears the token slot.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context, _ []string) error {
	return a.print(a.client.GetUserInfo(ctx))
}

// Contacts handles list, get and update.
func (a *App) Contacts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: contacts list|get|update", ErrUsage)
	}
	switch args[0] {
	case "list":
		params, err := parseKV(args[1:])
		if err != nil {
			return err
		}
		return a.print(a.client.ListContacts(ctx, params))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("%w: contacts get <id> [optional_property...]", ErrUsage)
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return a.print(a.client.GetContact(ctx, id, args[2:]...))
	case "update":
		if len(args) < 3 {
			return fmt.Errorf("%w: contacts update <id> field=value...", ErrUsage)
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		fields, err := parseKV(args[2:])
		if err != nil {
			return err
		}
		return a.print(a.client.UpdateContact(ctx, id, fields))
	}
	return fmt.Errorf("%w: unknown contacts command %q", ErrUsage, args[0])
}

// Tags handles list.
func (a *App) Tags(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return fmt.Errorf("%w: tags list [key=value...]", ErrUsage)
	}
	params, err := parseKV(args[1:])
	if err != nil {
		return err
	}
	return a.print(a.client.ListTags(ctx, params))
}

// Hooks handles list, create and delete.
func (a *App) Hooks(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: hooks list|create|delete", ErrUsage)
	}
	switch args[0] {
	case "list":
		return a.print(a.client.ListHooks(ctx))
	case "create":
		if len(args) != 3 {
			return fmt.Errorf("%w: hooks create <eventKey> <hookUrl>", ErrUsage)
		}
		return a.print(a.client.CreateHook(ctx, keap.Hook{EventKey: args[1], HookURL: args[2]}))
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("%w: hooks delete <key>", ErrUsage)
		}
		key, err := parseID(args[1])
		if err != nil {
			return err
		}
		if _, err := a.client.DeleteHook(ctx, key); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "deleted")
		return nil
	}
	return fmt.Errorf("%w: unknown hooks command %q", ErrUsage, args[0])
}

// Page follows a next/previous URL from an earlier list response.
func (a *App) Page(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: page <url>", ErrUsage)
	}
	return a.print(a.client.FetchPage(ctx, args[0]))
}
