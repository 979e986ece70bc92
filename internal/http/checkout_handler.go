package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/storefront/domain"
	"go.uber.org/zap"
)

type CheckoutRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

// Checkout places an order for the selected lines. A gateway payment answers with
// a redirect navigation the browser must follow.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
		return
	}

	s := sessionFrom(r.Context())
	if err := s.Cart.Checkout(ctx, method); err != nil {
		h.logger.Info("checkout failed",
			zap.String("session_id", s.ID),
			zap.Stringer("payment_method", method),
			zap.Error(err))
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusOK, s)
}

// Return is where the payment gateway sends the browser back. The outcome is read
// from "outcome", or "vnpay" for the legacy gateway.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	outcome := q.Get("outcome")
	if outcome == "" {
		outcome = q.Get("vnpay")
	}

	s := sessionFrom(r.Context())
	err := s.Cart.HandleReturn(ctx, domain.ReturnParams{
		Outcome: domain.ReturnOutcome(outcome),
		OrderID: q.Get("orderId"),
	})
	if err != nil {
		handleFailure(w, s, err)
		return
	}
	respondCart(w, http.StatusOK, s)
}
