package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hwalton/keap-console/pkg/keapoauth"
)

const maxBodyBytes = 1 << 16

type exchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// authorize redirects to Keap's consent screen with a signed state.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue()
	if err != nil {
		h.log.ErrorContext(r.Context(), "issue oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create state")
		return
	}
	setCookie(w, r, stateCookie, state, time.Now().Add(h.stateTTL))
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// callback is Keap's redirect target. It returns the token pair as JSON so
// the console (or keapctl) can store it.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		msg := e
		if d := q.Get("error_description"); d != "" {
			msg += ": " + d
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code missing")
		return
	}
	state := q.Get("state")
	// the state must come back to the browser that started the flow
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value != state {
		writeError(w, http.StatusBadRequest, "state does not match this browser")
		return
	}
	clearCookie(w, r, stateCookie)
	if err := h.states.Verify(state); err != nil {
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	pair, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.upstreamError(w, r, "exchange", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// exchange handles POST /api/auth/keap {code, state?}.
func (h *Handler) exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.State != "" {
		if err := h.states.Verify(req.State); err != nil {
			writeError(w, http.StatusBadRequest, "invalid or expired state")
			return
		}
	}

	pair, err := h.oauth.Exchange(r.Context(), req.Code)
	if err != nil {
		h.upstreamError(w, r, "exchange", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// refresh handles POST /api/auth/keap/refresh {refresh_token}.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.oauth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.upstreamError(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// upstreamError maps a token endpoint failure: a refused grant is 401 so
// the client ends the session, anything else is 502.
func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var oe *keapoauth.Error
	if errors.As(err, &oe) && oe.Rejected() {
		h.log.InfoContext(r.Context(), "keap rejected grant", "op", op, "code", oe.Code)
		writeError(w, http.StatusUnauthorized, op+" rejected by Keap")
		return
	}
	h.log.ErrorContext(r.Context(), "keap token endpoint failed", "op", op, "error", err)
	writeError(w, http.StatusBadGateway, "Keap token endpoint unavailable")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
