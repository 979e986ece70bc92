package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

const maxUploadBytes = 5 << 20

type ProfileUpdateDTO struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	MobileNumber    string `json:"mobile_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Register takes the sign-up form as multipart, with an optional "image" file,
// and forwards it to the backend. The new user still has to sign in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !parseUpload(w, r) {
		return
	}
	reg := backend.Registration{
		Email:     strings.TrimSpace(r.FormValue("email")),
		Password:  r.FormValue("password"),
		FirstName: strings.TrimSpace(r.FormValue("firstName")),
		LastName:  strings.TrimSpace(r.FormValue("lastName")),
		Phone:     strings.TrimSpace(r.FormValue("phone")),
	}
	if reg.Email == "" || reg.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "email and password are required")
		return
	}
	image, ok := uploadedImage(w, r, false)
	if !ok {
		return
	}
	reg.Image = image

	if err := h.accounts.Register(ctx, reg); err != nil {
		h.logger.Warn("registration failed", zap.String("email", reg.Email), zap.Error(err))
		handleBackendError(w, err)
		return
	}

	h.logger.Info("account registered", zap.String("email", reg.Email))
	respondJSON(w, http.StatusCreated, map[string]any{
		"status":   "registered",
		"navigate": session.Navigation{Kind: session.NavigationNavigate, Target: loginPath},
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, _, err := h.currentUser(ctx, sessionFrom(r.Context()))
	if err != nil {
		handleBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile changes either the password, when one is given, or the name and
// phone number. The backend wants the current email alongside a profile change.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProfileUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var update backend.UserUpdate
	switch {
	case req.Password != "":
		if req.Password != req.ConfirmPassword {
			respondError(w, http.StatusBadRequest, "invalid_argument", "passwords do not match")
			return
		}
		update.Password = req.Password
	case strings.TrimSpace(req.FirstName+req.LastName+req.MobileNumber) == "":
		respondError(w, http.StatusBadRequest, "invalid_argument", "nothing to update")
		return
	default:
		update.FirstName = strings.TrimSpace(req.FirstName)
		update.LastName = strings.TrimSpace(req.LastName)
		update.MobileNumber = strings.TrimSpace(req.MobileNumber)
	}

	s := sessionFrom(r.Context())
	user, cred, err := h.currentUser(ctx, s)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	if update.Password == "" {
		update.Email = user.Email
	}
	if err := h.accounts.UpdateUser(ctx, cred, user.UserID.String(), update); err != nil {
		h.logger.Warn("profile update failed", zap.String("session_id", s.ID), zap.Error(err))
		handleBackendError(w, err)
		return
	}
	h.respondProfile(ctx, w, s)
}

func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !parseUpload(w, r) {
		return
	}
	image, ok := uploadedImage(w, r, true)
	if !ok {
		return
	}

	s := sessionFrom(r.Context())
	user, cred, err := h.currentUser(ctx, s)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	if err := h.accounts.UploadAvatar(ctx, cred, user.UserID.String(), *image); err != nil {
		h.logger.Warn("avatar upload failed", zap.String("session_id", s.ID), zap.Error(err))
		handleBackendError(w, err)
		return
	}
	h.respondProfile(ctx, w, s)
}

func (h *Handler) currentUser(ctx context.Context, s *session.Session) (*backend.User, credentials.Credential, error) {
	cred, err := s.Credentials.Credential(ctx)
	if err != nil {
		return nil, credentials.Credential{}, err
	}
	if cred.UserKey == "" {
		return nil, credentials.Credential{}, backend.ErrUnauthenticated
	}
	user, err := h.accounts.GetUserByEmail(ctx, cred, cred.UserKey)
	if err != nil {
		return nil, credentials.Credential{}, err
	}
	return user, cred, nil
}

// respondProfile answers with the profile as the backend now has it.
func (h *Handler) respondProfile(ctx context.Context, w http.ResponseWriter, s *session.Session) {
	user, _, err := h.currentUser(ctx, s)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	err := r.ParseMultipartForm(maxUploadBytes)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "too_large", "upload is too large")
		return false
	}
	respondError(w, http.StatusBadRequest, "invalid_request", "expected a multipart form")
	return false
}

// uploadedImage reads the "image" part. Anything that does not sniff as an image
// is refused.
func uploadedImage(w http.ResponseWriter, r *http.Request, required bool) (*backend.File, bool) {
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) && !required {
		return nil, true
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", "image file is required")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read image")
		return nil, false
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		respondError(w, http.StatusBadRequest, "invalid_argument", "file is not an image")
		return nil, false
	}
	return &backend.File{Name: hdr.Filename, Content: data}, true
}
