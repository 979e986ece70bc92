package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/coordinator"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

const loginPath = "/login"

type ErrorResponse struct {
	Error    string              `json:"error"`
	Code     string              `json:"code,omitempty"`
	Details  string              `json:"details,omitempty"`
	Navigate *session.Navigation `json:"navigate,omitempty"`
}

// CartResponse is the cart view plus any navigation the operation asked for.
type CartResponse struct {
	coordinator.View
	Navigate *session.Navigation `json:"navigate,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondUnauthenticated(w http.ResponseWriter, nav *session.Navigation) {
	if nav == nil {
		nav = &session.Navigation{Kind: session.NavigationNavigate, Target: loginPath}
	}
	respondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:    "sign in required",
		Code:     "unauthenticated",
		Navigate: nav,
	})
}

// handleFailure converts a coordinator failure to an HTTP error. The user facing
// notice, when one was set, goes into details.
func handleFailure(w http.ResponseWriter, s *session.Session, err error) {
	var f *coordinator.Failure
	if !errors.As(err, &f) {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	nav := s.Nav.Take()
	var httpStatus int
	var code string

	switch f.Kind {
	case coordinator.KindUnauthenticated:
		respondUnauthenticated(w, nav)
		return
	case coordinator.KindValidation:
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case coordinator.KindRemote:
		httpStatus = http.StatusBadGateway
		code = "remote_failure"
	case coordinator.KindCancelled:
		httpStatus = http.StatusConflict
		code = "cancelled"
	case coordinator.KindBusy:
		httpStatus = http.StatusConflict
		code = "busy"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	resp := ErrorResponse{Error: f.Error(), Code: code, Navigate: nav}
	if notice := s.Cart.View().Notice; notice != nil {
		resp.Details = notice.Message
	}
	respondJSON(w, httpStatus, resp)
}

// handleBackendError is for calls that go straight to the backend client.
func handleBackendError(w http.ResponseWriter, err error) {
	if errors.Is(err, backend.ErrUnauthenticated) || errors.Is(err, credentials.ErrNoCredential) {
		respondUnauthenticated(w, nil)
		return
	}
	var se *backend.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		respondError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	if se != nil && !se.ServerSide() {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "the request was rejected",
			Code:    "rejected",
			Details: se.Body,
		})
		return
	}
	respondError(w, http.StatusBadGateway, "remote_failure", err.Error())
}

func respondCart(w http.ResponseWriter, status int, s *session.Session) {
	respondJSON(w, status, CartResponse{
		View:     s.Cart.View(),
		Navigate: s.Nav.Take(),
	})
}
