package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Selection is the set of cart lines chosen for the current checkout attempt.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Selection) Toggle(productID string) {
	if s.ids == nil {
		s.ids = map[string]struct{}{}
	}
	if _, ok := s.ids[productID]; ok {
		delete(s.ids, productID)
		return
	}
	s.ids[productID] = struct{}{}
}

func (s *Selection) Contains(productID string) bool {
	_, ok := s.ids[productID]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) Clear() {
	s.ids = map[string]struct{}{}
}

// Replace sets the selection to exactly ids.
func (s *Selection) Replace(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Prune removes ids that no longer have a line in cart.
func (s *Selection) Prune(cart *Cart) {
	for id := range s.ids {
		if _, ok := cart.Line(id); !ok {
			delete(s.ids, id)
		}
	}
}

// IDs returns the selected ids sorted, so repeated calls produce the same request body.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Total sums UnitPrice x Quantity over the selected lines of cart. It is zero for an
// empty selection or a nil/empty cart.
func (s *Selection) Total(cart *Cart) decimal.Decimal {
	total := decimal.Zero
	if cart == nil || s == nil {
		return total
	}
	for _, l := range cart.Lines {
		if s.Contains(l.ProductID) {
			total = total.Add(l.Subtotal())
		}
	}
	return total
}
