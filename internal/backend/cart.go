package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/shopspring/decimal"
)

type cartProductDTO struct {
	ProductID    ID                  `json:"productId"`
	ProductName  string              `json:"productName"`
	Image        string              `json:"image"`
	Price        decimal.Decimal     `json:"price"`
	SpecialPrice decimal.NullDecimal `json:"specialPrice"`
	Quantity     int                 `json:"quantity"`
}

type cartDTO struct {
	CartID   ID               `json:"cartId"`
	Products []cartProductDTO `json:"products"`
	Embedded struct {
		ProductDTOList []cartProductDTO `json:"productDTOList"`
	} `json:"_embedded"`
}

func (d cartDTO) toDomain() *domain.Cart {
	products := d.Products
	if len(products) == 0 {
		products = d.Embedded.ProductDTOList
	}
	cart := &domain.Cart{Lines: make([]domain.CartLine, 0, len(products))}
	for _, p := range products {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:   p.ProductID.String(),
			ProductName: p.ProductName,
			Image:       p.Image,
			UnitPrice:   domain.EffectivePrice(p.Price, p.SpecialPrice.Decimal),
			Quantity:    p.Quantity,
		})
	}
	cart.Normalize()
	return cart
}

// GetCart fetches the caller's cart. An empty body is an empty cart.
func (c *Client) GetCart(ctx context.Context, cred credentials.Credential) (*domain.Cart, error) {
	const op = "get cart"
	token, err := authed(op, cred)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/carts", token: token})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &domain.Cart{}, nil
	}

	var dto cartDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return dto.toDomain(), nil
}

func (c *Client) AddItem(ctx context.Context, cred credentials.Credential, productID string, qty int) error {
	return c.setQuantity(ctx, "add item", http.MethodPost, cred, productID, qty)
}

// UpdateQuantity sets the absolute quantity of an existing line.
func (c *Client) UpdateQuantity(ctx context.Context, cred credentials.Credential, productID string, qty int) error {
	return c.setQuantity(ctx, "update quantity", http.MethodPut, cred, productID, qty)
}

func (c *Client) setQuantity(ctx context.Context, op, method string, cred credentials.Credential, productID string, qty int) error {
	token, err := authed(op, cred)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/carts/products/%s/quantity/%s", segment(productID), strconv.Itoa(qty))
	_, err = c.do(ctx, call{
		op:          op,
		method:      method,
		path:        path,
		body:        []byte("{}"),
		contentType: "application/json",
		token:       token,
	})
	return err
}

func (c *Client) RemoveItem(ctx context.Context, cred credentials.Credential, productID string) error {
	const op = "remove item"
	token, err := authed(op, cred)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, call{
		op:     op,
		method: http.MethodDelete,
		path:   "/carts/product/" + segment(productID),
		token:  token,
	})
	return err
}

type placeOrderResponse struct {
	OrderID ID `json:"orderId"`
}

// PlaceOrder turns the given cart lines into an order and returns its id.
func (c *Client) PlaceOrder(ctx context.Context, cred credentials.Credential, method domain.PaymentMethod, productIDs []string) (string, error) {
	const op = "place order"
	token, err := authed(op, cred)
	if err != nil {
		return "", err
	}

	ids := make([]any, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, idValue(id))
	}
	body, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("%s: encode: %w", op, err)
	}

	data, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/carts/payments/%s/order", segment(method.Label())),
		body:        body,
		contentType: "application/json",
		token:       token,
	})
	if err != nil {
		return "", err
	}

	var resp placeOrderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%s: decode: %w", op, err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return resp.OrderID.String(), nil
}

// FinalizeOrder moves a gateway-paid order to statusLabel on the backend.
func (c *Client) FinalizeOrder(ctx context.Context, cred credentials.Credential, orderID, statusLabel string) error {
	const op = "finalize order"
	token, err := authed(op, cred)
	if err != nil {
		return err
	}
	if cred.UserKey == "" {
		return fmt.Errorf("%s: missing user key: %w", op, ErrUnauthenticated)
	}
	_, err = c.do(ctx, call{
		op:     op,
		method: http.MethodPut,
		path: fmt.Sprintf("/users/%s/orders/%s/status/%s",
			segment(cred.UserKey), segment(orderID), segment(statusLabel)),
		token: token,
	})
	return err
}
