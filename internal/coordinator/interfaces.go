package coordinator

import (
	"context"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/shopspring/decimal"
)

type CartAPI interface {
	GetCart(ctx context.Context, cred credentials.Credential) (*domain.Cart, error)
	AddItem(ctx context.Context, cred credentials.Credential, productID string, qty int) error
	UpdateQuantity(ctx context.Context, cred credentials.Credential, productID string, qty int) error
	RemoveItem(ctx context.Context, cred credentials.Credential, productID string) error
}

type OrderAPI interface {
	PlaceOrder(ctx context.Context, cred credentials.Credential, method domain.PaymentMethod, productIDs []string) (string, error)
	FinalizeOrder(ctx context.Context, cred credentials.Credential, orderID, statusLabel string) error
}

// PaymentGateway hands out the hosted payment page for an order.
type PaymentGateway interface {
	RedirectURL(ctx context.Context, amount decimal.Decimal, orderID string) (string, error)
}

// Navigator moves the user. Redirect leaves the storefront, Navigate stays inside it.
type Navigator interface {
	Redirect(url string)
	Navigate(path string)
}

type Signal interface {
	Publish()
}

type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
	UpdateStatus(ctx context.Context, orderID string, status domain.CheckoutStatus) error
	Lookup(ctx context.Context, orderID string) (*journal.Entry, error)
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) bool
