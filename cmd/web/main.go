package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/hwalton/keap-console/internal/config"
	"github.com/hwalton/keap-console/internal/handler"
	"github.com/hwalton/keap-console/internal/logger"
	mw "github.com/hwalton/keap-console/internal/middleware"
	"github.com/hwalton/keap-console/pkg/auth"
	"github.com/hwalton/keap-console/pkg/keapoauth"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file found, relying on environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		slog.Error("invalid server config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	provider := keapoauth.NewProvider(keapoauth.Config{
		ClientID:     cfg.Keap.ClientID,
		ClientSecret: cfg.Keap.ClientSecret,
		RedirectURI:  cfg.Keap.RedirectURI,
		Scope:        cfg.Keap.Scope,
		AuthURL:      cfg.Keap.AuthorizeURL,
		TokenURL:     cfg.Keap.TokenURL,
	}, &http.Client{Timeout: cfg.Keap.HTTPTimeout}, log)
	states := auth.NewStateSigner(cfg.Auth.StateSecret, cfg.Auth.StateTTL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(mw.CORS(cfg.CORS))

	r.Mount("/", handler.NewRouter(provider, states, log))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
