package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hwalton/keap-console/internal/config"
)

// CORS lets the browser console call the broker from its own origin and
// answers preflight requests.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := strings.Split(cfg.AllowedOrigins, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				switch allowOrigin(origin, origins) {
				case originListed:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				case originWildcard:
					// never paired with credentials
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type originMatch int

const (
	originDenied originMatch = iota
	originListed
	originWildcard
)

func allowOrigin(origin string, allowed []string) originMatch {
	match := originDenied
	for _, a := range allowed {
		switch strings.TrimSpace(a) {
		case origin:
			return originListed
		case "*":
			match = originWildcard
		}
	}
	return match
}
