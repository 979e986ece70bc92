package http

import (
	"context"
	"net/http"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cred, err := sessionFrom(r.Context()).Credentials.Credential(ctx)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	orders, err := h.catalog.ListOrders(ctx, cred)
	if err != nil {
		handleBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
