package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash            PaymentMethod = "CASH"
	PaymentMethodExternalGateway PaymentMethod = "EXTERNAL_GATEWAY"
)

// Label is the path segment the backend's place-order endpoint expects.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodExternalGateway:
		return "VNPay"
	default:
		return "Cash"
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod accepts both the enum names and the backend labels.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "cod":
		return PaymentMethodCash, nil
	case "external_gateway", "gateway", "vnpay", "stripe":
		return PaymentMethodExternalGateway, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// CheckoutSession is the client side view of one checkout attempt.
type CheckoutSession struct {
	PaymentMethod PaymentMethod   `json:"payment_method"`
	OrderID       string          `json:"order_id,omitempty"`
	Status        CheckoutStatus  `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewCheckoutSession() CheckoutSession {
	return CheckoutSession{Status: CheckoutStatusNotStarted}
}

type ReturnOutcome string

const (
	ReturnOutcomeSuccess ReturnOutcome = "success"
	ReturnOutcomeCancel  ReturnOutcome = "cancel"
)

// ReturnParams are the only data the payment gateway hands back through the return URL.
type ReturnParams struct {
	Outcome ReturnOutcome
	OrderID string
}
