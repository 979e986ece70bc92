package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChatRequestDTO struct {
	Message string `json:"message"`
}

type BadgeResponse struct {
	Count int `json:"count"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "email and password are required")
		return
	}

	s := sessionFrom(r.Context())
	res, err := h.sessions.Login(ctx, s, req.Email, req.Password)
	if errors.Is(err, backend.ErrUnauthenticated) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "wrong email or password")
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.String("session_id", s.ID), zap.Error(err))
		respondError(w, http.StatusBadGateway, "remote_failure", "sign in is unavailable, try again later")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if err := h.sessions.Logout(r.Context(), s.ID); err != nil {
		h.logger.Error("logout failed", zap.String("session_id", s.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "signed_out",
		"navigate": session.Navigation{Kind: session.NavigationNavigate, Target: loginPath},
	})
}

// Badge refreshes the cart count. When the backend is down the last known count is
// served instead of an error.
func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, _ := sessionFrom(r.Context()).Badge.Refresh(ctx)
	respondJSON(w, http.StatusOK, BadgeResponse{Count: n})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "message is required")
		return
	}

	respondJSON(w, http.StatusOK, sessionFrom(r.Context()).Chat.Ask(ctx, req.Message))
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r.Context()).Chat.Messages())
}
