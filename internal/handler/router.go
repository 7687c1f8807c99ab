package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hwalton/keap-console/pkg/keap"
)

// OAuthProvider is the Keap authorization-code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (keap.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (keap.TokenPair, error)
}

// StateSigner issues and checks OAuth state values.
type StateSigner interface {
	Issue() (string, error)
	Verify(state string) error
	TTL() time.Duration
}

// Handler groups dependencies for route handlers.
type Handler struct {
	oauth    OAuthProvider
	states   StateSigner
	stateTTL time.Duration
	log      *slog.Logger
}

// NewRouter returns the broker routes.
func NewRouter(oauth OAuthProvider, states StateSigner, logger *slog.Logger) http.Handler {
	h := &Handler{
		oauth:    oauth,
		states:   states,
		stateTTL: states.TTL(),
		log:      logger.With("component", "handler"),
	}
	r := chi.NewRouter()

	r.Get("/health", h.health)

	r.Route("/api/auth/keap", func(r chi.Router) {
		r.Post("/", h.exchange)
		r.Get("/authorize", h.authorize)
		r.Get("/callback", h.callback)
		r.Post("/refresh", h.refresh)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
