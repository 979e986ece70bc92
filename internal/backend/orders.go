package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/shopspring/decimal"
)

type OrderItem struct {
	OrderItemID         ID                  `json:"orderItemId"`
	Product             Product             `json:"product"`
	Quantity            int                 `json:"quantity"`
	Discount            decimal.NullDecimal `json:"discount"`
	OrderedProductPrice decimal.Decimal     `json:"orderedProductPrice"`
}

type Payment struct {
	PaymentID     ID     `json:"paymentId"`
	PaymentMethod string `json:"paymentMethod"`
}

type Order struct {
	OrderID     ID              `json:"orderId"`
	Email       string          `json:"email,omitempty"`
	OrderDate   string          `json:"orderDate"`
	OrderItems  []OrderItem     `json:"orderItems"`
	OrderStatus string          `json:"orderStatus"`
	Payment     *Payment        `json:"payment,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// ListOrders returns the order history of the signed-in user.
func (c *Client) ListOrders(ctx context.Context, cred credentials.Credential) ([]Order, error) {
	const op = "list orders"
	token, err := authed(op, cred)
	if err != nil {
		return nil, err
	}
	if cred.UserKey == "" {
		return nil, fmt.Errorf("%s: missing user key: %w", op, ErrUnauthenticated)
	}

	data, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   fmt.Sprintf("/public/users/%s/orders", segment(cred.UserKey)),
		token:  token,
	})
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
