package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type SelectAllRequestDTO struct {
	All bool `json:"all"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s := sessionFrom(r.Context())
	if err := s.Cart.LoadCart(ctx); err != nil {
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusOK, s)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	s := sessionFrom(r.Context())
	if err := s.Cart.AddItem(ctx, req.ProductID, req.Quantity); err != nil {
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusCreated, s)
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := sessionFrom(r.Context())
	if err := s.Cart.UpdateQuantity(ctx, chi.URLParam(r, "product_id"), req.Delta); err != nil {
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusOK, s)
}

// RemoveItem deletes a line. The browser asks the user first and passes the answer
// as ?confirm=true.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	s := sessionFrom(r.Context())
	err := s.Cart.RemoveLine(ctx, chi.URLParam(r, "product_id"), func(string) bool { return confirmed })
	if err != nil {
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusOK, s)
}

func (h *Handler) ToggleSelect(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if err := s.Cart.ToggleSelect(chi.URLParam(r, "product_id")); err != nil {
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusOK, s)
}

func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	var req SelectAllRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := sessionFrom(r.Context())
	s.Cart.SelectAll(req.All)
	respondCart(w, http.StatusOK, s)
}

func (h *Handler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	s.Cart.DismissNotice()
	respondCart(w, http.StatusOK, s)
}
