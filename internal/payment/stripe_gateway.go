package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// currencies Stripe expects in whole units
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// StripeGateway creates a Stripe Checkout Session per order and hands back its hosted URL.
type StripeGateway struct {
	api       *client.API
	currency  string
	returnURL string
	logger    *zap.Logger
}

type StripeOption func(*stripe.Backends)

// WithStripeBackend routes all Stripe API calls through b. Used by tests.
func WithStripeBackend(b stripe.Backend) StripeOption {
	return func(bs *stripe.Backends) {
		bs.API = b
		bs.Connect = b
		bs.Uploads = b
	}
}

func NewStripeGateway(secretKey, currency, returnURL string, l *zap.Logger, opts ...StripeOption) *StripeGateway {
	var backends *stripe.Backends
	if len(opts) > 0 {
		backends = &stripe.Backends{}
		for _, opt := range opts {
			opt(backends)
		}
	}
	api := &client.API{}
	api.Init(secretKey, backends)

	return &StripeGateway{
		api:       api,
		currency:  strings.ToLower(strings.TrimSpace(currency)),
		returnURL: returnURL,
		logger:    logger.OrNop(l),
	}
}

func (g *StripeGateway) RedirectURL(ctx context.Context, amount decimal.Decimal, orderID string) (string, error) {
	successURL, err := ReturnURL(g.returnURL, domain.ReturnOutcomeSuccess, orderID)
	if err != nil {
		return "", fmt.Errorf("build success url: %w", err)
	}
	cancelURL, err := ReturnURL(g.returnURL, domain.ReturnOutcomeCancel, orderID)
	if err != nil {
		return "", fmt.Errorf("build cancel url: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(orderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(MinorUnits(amount, g.currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + orderID),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", orderID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		logger.WithTrace(ctx, g.logger).Error("error creating Stripe checkout session",
			zap.String("order_id", orderID),
			zap.Error(err))
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if sess.URL == "" {
		return "", ErrNoRedirectURL
	}
	return sess.URL, nil
}

// MinorUnits converts amount to the smallest currency unit Stripe bills in.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
