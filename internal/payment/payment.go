package payment

import (
	"errors"
	"net/url"

	"github.com/fjod/go_cart/storefront/domain"
)

var ErrNoRedirectURL = errors.New("payment: no redirect url in response")

// ReturnURL appends the outcome and order id to base, keeping any query base already has.
func ReturnURL(base string, outcome domain.ReturnOutcome, orderID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("outcome", string(outcome))
	q.Set("orderId", orderID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
