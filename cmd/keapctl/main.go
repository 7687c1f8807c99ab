package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/hwalton/keap-console/internal/commands"
	"github.com/hwalton/keap-console/internal/config"
	"github.com/hwalton/keap-console/internal/logger"
	"github.com/hwalton/keap-console/internal/store"
	"github.com/hwalton/keap-console/pkg/keap"
)

func usage() {
	fmt.Fprintln(os.Stderr, `keapctl <command> [args...]

commands:
  migrate                          apply the token_slots schema (postgres store)
  login-url                        print the URL that starts the Keap consent flow
  login <code>                     exchange an authorization code and save tokens
  logout                           clear saved tokens
  whoami                           show the signed-in Keap user
  contacts list [key=value...]
  contacts get <id> [property...]
  contacts update <id> field=value...
  tags list [key=value...]
  hooks list
  hooks create <eventKey> <hookUrl>
  hooks delete <key>
  page <url>                       fetch a next/previous page URL

key=value sends the value as a string; key:=value takes a JSON literal
(numbers, true/false, null, arrays).`)
}

type cmdHandler func(context.Context, []string) error

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tokens, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open token store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	app, err := commands.New(cfg, tokens, log, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	handlers := map[string]cmdHandler{
		"migrate":   app.Migrate,
		"login-url": app.LoginURL,
		"login":     app.Login,
		"logout":    app.Logout,
		"whoami":    app.WhoAmI,
		"contacts":  app.Contacts,
		"tags":      app.Tags,
		"hooks":     app.Hooks,
		"page":      app.Page,
	}

	cmd := os.Args[1]
	handler, ok := handlers[cmd]
	if !ok {
		usage()
		os.Exit(2)
	}

	code := run(ctx, cmd, handler, os.Args[2:])
	closeStore()
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cmd string, handler cmdHandler, args []string) int {
	err := handler(ctx, args)
	if err == nil {
		return 0
	}

	var apiErr *keap.APIError
	switch {
	case errors.Is(err, commands.ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		return 2
	case errors.As(err, &apiErr) && apiErr.Status != 0:
		fmt.Fprintf(os.Stderr, "%s failed: status %d: %s\n", cmd, apiErr.Status, apiErr.Message)
	default:
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
	}
	return 1
}
