package coordinator

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/shopspring/decimal"
)

// fakeBackend keeps an authoritative cart like the real REST backend would.
type fakeBackend struct {
	mu    sync.Mutex
	lines map[string]domain.CartLine
	calls []string

	getErr      error
	addErr      error
	updateErr   error
	removeErr   error
	placeErr    error
	finalizeErr error

	orderID   string
	consume   bool
	placed    [][]string
	methods   []domain.PaymentMethod
	finalized []string

	placeGate chan struct{}
	getGate   chan struct{}
}

func newFakeBackend(lines ...domain.CartLine) *fakeBackend {
	b := &fakeBackend{lines: map[string]domain.CartLine{}, orderID: "42"}
	for _, l := range lines {
		b.lines[l.ProductID] = l
	}
	return b
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

func (b *fakeBackend) count(prefix string) int {
	n := 0
	for _, c := range b.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (b *fakeBackend) GetCart(_ context.Context, cred credentials.Credential) (*domain.Cart, error) {
	b.record("get")
	if b.getGate != nil {
		<-b.getGate
	}
	if cred.Empty() {
		return nil, backend.ErrUnauthenticated
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	ids := make([]string, 0, len(b.lines))
	for id := range b.lines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	cart := &domain.Cart{}
	for _, id := range ids {
		cart.Lines = append(cart.Lines, b.lines[id])
	}
	return cart, nil
}

func (b *fakeBackend) AddItem(_ context.Context, _ credentials.Credential, productID string, qty int) error {
	b.record(fmt.Sprintf("add %s %d", productID, qty))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.addErr != nil {
		return b.addErr
	}
	l := b.lines[productID]
	l.ProductID = productID
	if l.UnitPrice.IsZero() {
		l.UnitPrice = decimal.NewFromInt(100)
	}
	l.Quantity += qty
	b.lines[productID] = l
	return nil
}

func (b *fakeBackend) UpdateQuantity(_ context.Context, _ credentials.Credential, productID string, qty int) error {
	b.record(fmt.Sprintf("update %s %d", productID, qty))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateErr != nil {
		return b.updateErr
	}
	l := b.lines[productID]
	l.Quantity = qty
	b.lines[productID] = l
	return nil
}

func (b *fakeBackend) RemoveItem(_ context.Context, _ credentials.Credential, productID string) error {
	b.record("remove " + productID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removeErr != nil {
		return b.removeErr
	}
	delete(b.lines, productID)
	return nil
}

func (b *fakeBackend) PlaceOrder(_ context.Context, _ credentials.Credential, method domain.PaymentMethod, productIDs []string) (string, error) {
	b.record("place")
	if b.placeGate != nil {
		<-b.placeGate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.placeErr != nil {
		return "", b.placeErr
	}
	b.placed = append(b.placed, slices.Clone(productIDs))
	b.methods = append(b.methods, method)
	if b.consume {
		for _, id := range productIDs {
			delete(b.lines, id)
		}
	}
	return b.orderID, nil
}

func (b *fakeBackend) FinalizeOrder(_ context.Context, cred credentials.Credential, orderID, statusLabel string) error {
	b.record("finalize")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalizeErr != nil {
		return b.finalizeErr
	}
	b.finalized = append(b.finalized, cred.UserKey+"|"+orderID+"|"+statusLabel)
	return nil
}

type fakePayments struct {
	mu      sync.Mutex
	url     string
	err     error
	amounts []decimal.Decimal
	orders  []string
}

func (p *fakePayments) RedirectURL(_ context.Context, amount decimal.Decimal, orderID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.amounts = append(p.amounts, amount)
	p.orders = append(p.orders, orderID)
	return p.url, p.err
}

func (p *fakePayments) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.amounts)
}

type fakeNavigator struct {
	mu        sync.Mutex
	redirects []string
	navigated []string
}

func (n *fakeNavigator) Redirect(url string) {
	n.mu.Lock()
	n.redirects = append(n.redirects, url)
	n.mu.Unlock()
}

func (n *fakeNavigator) Navigate(path string) {
	n.mu.Lock()
	n.navigated = append(n.navigated, path)
	n.mu.Unlock()
}

func (n *fakeNavigator) Redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.redirects)
}

func (n *fakeNavigator) Navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.navigated)
}

type countingSignal struct {
	mu sync.Mutex
	n  int
}

func (s *countingSignal) Publish() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *countingSignal) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type fakeTimers struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (f *fakeTimers) afterFunc(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.delays = append(f.delays, d)
	f.pending = append(f.pending, t)
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

// fire runs every timer that was not stopped.
func (f *fakeTimers) fire() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.fn()
		}
	}
}

func (f *fakeTimers) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.delays)
}

type harness struct {
	c        *Coordinator
	backend  *fakeBackend
	payments *fakePayments
	nav      *fakeNavigator
	signal   *countingSignal
	creds    *credentials.Static
	timers   *fakeTimers
}

func line(id string, price int64, qty int) domain.CartLine {
	return domain.CartLine{
		ProductID:   id,
		ProductName: "product " + id,
		UnitPrice:   decimal.NewFromInt(price),
		Quantity:    qty,
	}
}

func newHarness(j Journal, lines ...domain.CartLine) *harness {
	h := &harness{
		backend:  newFakeBackend(lines...),
		payments: &fakePayments{url: "https://pay.example/p/42"},
		nav:      &fakeNavigator{},
		signal:   &countingSignal{},
		creds:    credentials.NewStatic(credentials.Credential{Token: "jwt", UserKey: "a@b.c"}),
		timers:   &fakeTimers{},
	}
	h.c = New(Deps{
		Cart:        h.backend,
		Orders:      h.backend,
		Payments:    h.payments,
		Credentials: h.creds,
		Navigator:   h.nav,
		Signal:      h.signal,
		Journal:     j,
	}, Config{SessionID: "s1"})
	h.c.afterFunc = h.timers.afterFunc
	return h
}
