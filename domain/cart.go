package domain

import "github.com/shopspring/decimal"

// CartLine is one product entry of the remote cart with its effective unit price.
type CartLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Image       string          `json:"image"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// Subtotal is UnitPrice x Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart mirrors the server-authoritative cart of the caller. It is never cached
// beyond the current view.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// EffectivePrice picks the special price when the backend sent a positive one.
func EffectivePrice(price, special decimal.Decimal) decimal.Decimal {
	if special.IsPositive() {
		return special
	}
	return price
}

func (c *Cart) Line(productID string) (CartLine, bool) {
	if c == nil {
		return CartLine{}, false
	}
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) ProductIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// TotalQuantity is what the header badge shows.
func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// Normalize drops lines with non-positive quantity and merges duplicate product ids,
// keeping the first occurrence's metadata.
func (c *Cart) Normalize() {
	if c == nil || len(c.Lines) == 0 {
		return
	}
	idx := make(map[string]int, len(c.Lines))
	out := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	c.Lines = out
}
