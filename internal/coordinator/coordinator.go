package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opLoadCart       = "load cart"
	opAddItem        = "add item"
	opUpdateQuantity = "update quantity"
	opRemoveLine     = "remove line"
	opToggleSelect   = "toggle select"
	opCheckout       = "checkout"
	opPlaceOrder     = "place order"
	opPaymentURL     = "request payment url"
	opReturn         = "handle return"
	opFinalize       = "finalize order"
)

type Config struct {
	// FinalizeStatus is the order status label sent when a gateway payment returns successfully.
	FinalizeStatus string
	SuccessDelay   time.Duration
	HomePath       string
	LoginPath      string
	SessionID      string
}

func (c Config) withDefaults() Config {
	if c.FinalizeStatus == "" {
		c.FinalizeStatus = "Accepted"
	}
	if c.SuccessDelay <= 0 {
		c.SuccessDelay = 3 * time.Second
	}
	if c.HomePath == "" {
		c.HomePath = "/"
	}
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	return c
}

// Deps are the collaborators of one coordinator. Journal and Logger may be nil.
type Deps struct {
	Cart        CartAPI
	Orders      OrderAPI
	Payments    PaymentGateway
	Credentials credentials.Provider
	Navigator   Navigator
	Signal      Signal
	Journal     Journal
	Logger      *zap.Logger
}

type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// View is a read-only snapshot for presentation.
type View struct {
	Cart          *domain.Cart           `json:"cart"`
	Selected      []string               `json:"selected"`
	SelectedTotal decimal.Decimal        `json:"selected_total"`
	Checkout      domain.CheckoutSession `json:"checkout"`
	Busy          bool                   `json:"busy"`
	Notice        *Notice                `json:"notice,omitempty"`
	ShowSuccess   bool                   `json:"show_success"`
}

// Coordinator owns the cart view of one session and drives checkout against the
// remote cart, order and payment collaborators. Remote calls run without holding
// the lock; a result that arrives after Reset or Close is dropped.
type Coordinator struct {
	deps      Deps
	cfg       Config
	log       *zap.Logger
	afterFunc func(time.Duration, func()) func() bool

	mu          sync.Mutex
	cart        *domain.Cart
	selection   *domain.Selection
	session     domain.CheckoutSession
	busy        bool
	notice      *Notice
	showSuccess bool
	generation  uint64
	closed      bool
	stopTimer   func() bool
}

func New(deps Deps, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	l := logger.OrNop(deps.Logger)
	if cfg.SessionID != "" {
		l = l.With(zap.String("session_id", cfg.SessionID))
	}
	return &Coordinator{
		deps: deps,
		cfg:  cfg,
		log:  l,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		selection: domain.NewSelection(),
		session:   domain.NewCheckoutSession(),
	}
}

func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Selected:      c.selection.IDs(),
		SelectedTotal: c.selection.Total(c.cart),
		Checkout:      c.session,
		Busy:          c.busy,
		ShowSuccess:   c.showSuccess,
	}
	if c.cart != nil {
		v.Cart = &domain.Cart{Lines: append([]domain.CartLine(nil), c.cart.Lines...)}
	}
	if c.notice != nil {
		n := *c.notice
		v.Notice = &n
	}
	return v
}

func (c *Coordinator) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Coordinator) DismissNotice() {
	c.mu.Lock()
	c.notice = nil
	c.mu.Unlock()
}

// SelectedTotal is the sum of UnitPrice x Quantity over the selected lines.
func (c *Coordinator) SelectedTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Total(c.cart)
}

// LoadCart replaces the local cart with the authoritative one. On a remote failure
// the cart is left empty and a notice is set.
func (c *Coordinator) LoadCart(ctx context.Context) error {
	gen, ok := c.begin()
	if !ok {
		return nil
	}
	return c.reload(ctx, gen)
}

func (c *Coordinator) AddItem(ctx context.Context, productID string, qty int) error {
	if productID == "" {
		return validation(opAddItem, "product id is required")
	}
	if qty < 1 {
		return validation(opAddItem, "quantity must be at least 1, got %d", qty)
	}
	gen, ok := c.begin()
	if !ok {
		return nil
	}
	return c.mutate(ctx, gen, opAddItem, "Could not add the product to the cart.", func(cred credentials.Credential) error {
		return c.deps.Cart.AddItem(ctx, cred, productID, qty)
	})
}

// UpdateQuantity changes a line by delta. A result of zero or less is rejected
// without any remote call; lines are removed through RemoveLine only.
func (c *Coordinator) UpdateQuantity(ctx context.Context, productID string, delta int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	line, found := c.cart.Line(productID)
	c.mu.Unlock()

	if !found {
		return validation(opUpdateQuantity, "product %s is not in the cart", productID)
	}
	newQty := line.Quantity + delta
	if newQty <= 0 {
		return validation(opUpdateQuantity, "quantity of %s would drop to %d, remove the line instead", productID, newQty)
	}

	return c.mutate(ctx, gen, opUpdateQuantity, "Could not update the quantity.", func(cred credentials.Credential) error {
		return c.deps.Cart.UpdateQuantity(ctx, cred, productID, newQty)
	})
}

// RemoveLine deletes a line after confirm approves it. A declined or missing
// confirmation yields a Cancelled failure and no remote call.
func (c *Coordinator) RemoveLine(ctx context.Context, productID string, confirm ConfirmFunc) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	name := productID
	if line, ok := c.cart.Line(productID); ok && line.ProductName != "" {
		name = line.ProductName
	}
	c.mu.Unlock()

	if confirm == nil || !confirm(fmt.Sprintf("Remove %s from the cart?", name)) {
		return &Failure{Kind: KindCancelled, Op: opRemoveLine, Err: errors.New("removal not confirmed")}
	}

	return c.mutate(ctx, gen, opRemoveLine, "Could not remove the product.", func(cred credentials.Credential) error {
		return c.deps.Cart.RemoveItem(ctx, cred, productID)
	})
}

func (c *Coordinator) ToggleSelect(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cart.Line(productID); !ok && !c.selection.Contains(productID) {
		return validation(opToggleSelect, "product %s is not in the cart", productID)
	}
	c.selection.Toggle(productID)
	return nil
}

// SelectAll selects every current line, or clears the selection.
func (c *Coordinator) SelectAll(all bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !all {
		c.selection.Clear()
		return
	}
	c.selection.Replace(c.cart.ProductIDs())
}

// Reset drops all in-memory state and pending timers. Used on logout.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.clearLocked()
}

// Close is Reset for a coordinator that will not be used again. Calls still in
// flight finish, but their results are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.closed = true
	c.clearLocked()
}

func (c *Coordinator) clearLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
	c.cart = nil
	c.selection = domain.NewSelection()
	c.session = domain.NewCheckoutSession()
	c.busy = false
	c.notice = nil
	c.showSuccess = false
}

func (c *Coordinator) begin() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, !c.closed
}

// current must be called with c.mu held.
func (c *Coordinator) current(gen uint64) bool {
	return !c.closed && c.generation == gen
}

func (c *Coordinator) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current(gen)
}

// mutate runs one remote cart mutation, then reloads the cart and emits exactly
// one cart-changed signal. A failed mutation emits nothing.
func (c *Coordinator) mutate(ctx context.Context, gen uint64, op, message string, call func(credentials.Credential) error) error {
	cred, err := c.deps.Credentials.Credential(ctx)
	if err == nil {
		err = call(cred)
	}
	if err != nil {
		return c.remoteFailure(ctx, gen, op, message, err)
	}
	if !c.isCurrent(gen) {
		return nil
	}

	reloadErr := c.reload(ctx, gen)
	c.emit(gen)
	return reloadErr
}

func (c *Coordinator) reload(ctx context.Context, gen uint64) error {
	cred, err := c.deps.Credentials.Credential(ctx)
	var cart *domain.Cart
	if err == nil {
		cart, err = c.deps.Cart.GetCart(ctx, cred)
	}
	if err != nil {
		f := classify(opLoadCart, err)
		if f.Kind == KindUnauthenticated {
			c.signOut(ctx, gen)
			return f
		}
		c.mu.Lock()
		if c.current(gen) {
			c.cart = nil
			c.selection.Clear()
			c.notice = &Notice{Kind: KindRemote, Message: "Could not load the cart."}
		}
		c.mu.Unlock()
		logger.WithTrace(ctx, c.log).Warn("failed to load cart", zap.Error(err))
		return f
	}
	if cart == nil {
		cart = &domain.Cart{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return nil
	}
	c.cart = cart
	c.selection.Prune(cart)
	return nil
}

func (c *Coordinator) remoteFailure(ctx context.Context, gen uint64, op, message string, err error) error {
	f := classify(op, err)
	if f.Kind == KindUnauthenticated {
		c.signOut(ctx, gen)
		return f
	}
	c.mu.Lock()
	if c.current(gen) {
		c.notice = &Notice{Kind: KindRemote, Message: message}
	}
	c.mu.Unlock()
	logger.WithTrace(ctx, c.log).Warn("cart operation failed", zap.String("op", op), zap.Error(err))
	return f
}

// signOut forgets the credential and sends the user to the login page.
func (c *Coordinator) signOut(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return
	}
	c.cart = nil
	c.selection.Clear()
	c.notice = nil
	c.mu.Unlock()

	if err := c.deps.Credentials.Clear(ctx); err != nil {
		c.log.Warn("failed to clear credential", zap.Error(err))
	}
	c.deps.Navigator.Navigate(c.cfg.LoginPath)
}

func (c *Coordinator) emit(gen uint64) {
	if !c.isCurrent(gen) || c.deps.Signal == nil {
		return
	}
	c.deps.Signal.Publish()
}
