package coordinator

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

// Checkout places an order for the selected lines. Cash orders succeed right
// away; gateway orders end with a redirect to the hosted payment page and are
// settled later by HandleReturn. One order call and at most one payment-url call
// are made per invocation.
func (c *Coordinator) Checkout(ctx context.Context, method domain.PaymentMethod) error {
	if method != domain.PaymentMethodCash && method != domain.PaymentMethodExternalGateway {
		return validation(opCheckout, "unsupported payment method %q", method)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.busy {
		c.mu.Unlock()
		return &Failure{Kind: KindBusy, Op: opCheckout, Err: errors.New("a checkout is already in progress")}
	}
	if c.selection.Len() == 0 {
		c.mu.Unlock()
		return validation(opCheckout, "select at least one product")
	}

	abandoned := c.startAttemptLocked(method)
	ids := c.selection.IDs()
	amount := c.session.Amount
	gen := c.generation
	c.busy = true
	c.notice = nil
	c.showSuccess = false
	c.mu.Unlock()

	if abandoned != "" {
		c.journalSave(ctx, domain.CheckoutSession{
			PaymentMethod: domain.PaymentMethodExternalGateway,
			OrderID:       abandoned,
			Status:        domain.CheckoutStatusCancelled,
		})
	}

	cred, err := c.deps.Credentials.Credential(ctx)
	var orderID string
	if err == nil {
		orderID, err = c.deps.Orders.PlaceOrder(ctx, cred, method, ids)
	}
	if err != nil {
		return c.checkoutFailed(ctx, gen, opPlaceOrder, "Could not create the order. Some products may be out of stock.", err)
	}

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	c.session.OrderID = orderID
	c.transitionLocked(domain.CheckoutStatusOrderCreated)
	created := c.session
	c.mu.Unlock()

	log := logger.WithTrace(ctx, c.log).With(zap.String("order_id", orderID), zap.Stringer("method", method))
	log.Info("order created", zap.String("amount", amount.String()))
	c.journalSave(ctx, created)

	if method == domain.PaymentMethodCash {
		return c.succeed(ctx, gen)
	}

	url, err := c.deps.Payments.RedirectURL(ctx, amount, orderID)
	if err == nil && url == "" {
		err = errors.New("empty payment url")
	}
	if err != nil {
		return c.checkoutFailed(ctx, gen, opPaymentURL, "Could not start the payment. Please try again.", err)
	}

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	c.transitionLocked(domain.CheckoutStatusAwaitingGatewayRedirect)
	c.busy = false
	awaiting := c.session
	c.mu.Unlock()

	c.journalSave(ctx, awaiting)
	log.Info("redirecting to payment gateway")
	c.deps.Navigator.Redirect(url)
	return nil
}

// HandleReturn settles a gateway round trip from the return URL parameters.
// A successful payment is always finalized on the backend before it counts,
// unless the journal already records the order as succeeded. A success without
// an order id settles the order this session is waiting on, if any.
func (c *Coordinator) HandleReturn(ctx context.Context, params domain.ReturnParams) error {
	switch params.Outcome {
	case domain.ReturnOutcomeSuccess, domain.ReturnOutcomeCancel:
	default:
		return validation(opReturn, "unknown return outcome %q", params.Outcome)
	}

	c.mu.Lock()
	if params.Outcome == domain.ReturnOutcomeSuccess && params.OrderID == "" {
		if c.session.Status != domain.CheckoutStatusAwaitingGatewayRedirect || c.session.OrderID == "" {
			c.mu.Unlock()
			return validation(opReturn, "successful return without order id")
		}
		params.OrderID = c.session.OrderID
	}
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.busy {
		c.mu.Unlock()
		return &Failure{Kind: KindBusy, Op: opReturn, Err: errors.New("a checkout is already in progress")}
	}
	gen := c.generation
	c.enterReturnLocked(params.OrderID)

	if params.Outcome == domain.ReturnOutcomeCancel {
		c.transitionLocked(domain.CheckoutStatusCancelled)
		c.notice = &Notice{Kind: KindCancelled, Message: "The payment was cancelled or did not go through."}
		cancelled := c.session
		c.mu.Unlock()

		logger.WithTrace(ctx, c.log).Info("payment cancelled", zap.String("order_id", params.OrderID))
		if cancelled.OrderID != "" {
			c.journalSave(ctx, cancelled)
		}
		return c.reload(ctx, gen)
	}

	c.busy = true
	c.mu.Unlock()

	if c.alreadySucceeded(ctx, params.OrderID) {
		c.mu.Lock()
		if c.current(gen) {
			c.session.Status = domain.CheckoutStatusSucceeded
			c.busy = false
			c.showSuccess = true
			c.scheduleHomeLocked(gen)
		}
		c.mu.Unlock()
		c.log.Info("order already finalized, skipping reconciliation", zap.String("order_id", params.OrderID))
		return nil
	}

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	c.transitionLocked(domain.CheckoutStatusReconcilingReturn)
	c.mu.Unlock()

	cred, err := c.deps.Credentials.Credential(ctx)
	if err == nil {
		err = c.deps.Orders.FinalizeOrder(ctx, cred, params.OrderID, c.cfg.FinalizeStatus)
	}
	if err != nil {
		return c.checkoutFailed(ctx, gen, opFinalize, "The payment could not be confirmed. Your order is pending.", err)
	}
	return c.succeed(ctx, gen)
}

// startAttemptLocked opens a fresh session for method and returns the order id of
// a gateway attempt the user walked away from, if any.
func (c *Coordinator) startAttemptLocked(method domain.PaymentMethod) string {
	var abandoned string
	if c.session.Status == domain.CheckoutStatusAwaitingGatewayRedirect {
		abandoned = c.session.OrderID
		c.transitionLocked(domain.CheckoutStatusCancelled)
	}
	if c.session.Status.IsTerminal() {
		c.transitionLocked(domain.CheckoutStatusNotStarted)
	}
	c.session = domain.CheckoutSession{
		PaymentMethod: method,
		Status:        domain.CheckoutStatusNotStarted,
		Amount:        c.selection.Total(c.cart),
	}
	return abandoned
}

// enterReturnLocked lines the session up with the order named by the return URL.
// A process that never saw the redirect starts from NotStarted.
func (c *Coordinator) enterReturnLocked(orderID string) {
	if c.session.Status.IsTerminal() {
		c.session = domain.NewCheckoutSession()
	}
	if c.session.Status == domain.CheckoutStatusAwaitingGatewayRedirect && orderID != "" && orderID != c.session.OrderID {
		c.session = domain.NewCheckoutSession()
	}
	c.session.PaymentMethod = domain.PaymentMethodExternalGateway
	if orderID != "" {
		c.session.OrderID = orderID
	}
	c.showSuccess = false
}

func (c *Coordinator) succeed(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	c.transitionLocked(domain.CheckoutStatusSucceeded)
	c.busy = false
	c.showSuccess = true
	c.selection.Clear()
	c.scheduleHomeLocked(gen)
	done := c.session
	c.mu.Unlock()

	logger.WithTrace(ctx, c.log).Info("checkout succeeded",
		zap.String("order_id", done.OrderID),
		zap.Stringer("method", done.PaymentMethod))
	c.journalSave(ctx, done)
	c.emit(gen)

	// The backend drops ordered lines from the cart. A failed reload leaves its
	// own notice and does not undo the checkout.
	_ = c.reload(ctx, gen)
	return nil
}

func (c *Coordinator) checkoutFailed(ctx context.Context, gen uint64, op, message string, err error) error {
	f := classify(op, err)

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	c.transitionLocked(domain.CheckoutStatusFailed)
	c.busy = false
	if f.Kind != KindUnauthenticated {
		c.notice = &Notice{Kind: KindRemote, Message: message}
	}
	failed := c.session
	c.mu.Unlock()

	logger.WithTrace(ctx, c.log).Error("checkout failed",
		zap.String("op", op),
		zap.String("order_id", failed.OrderID),
		zap.Error(err))
	if failed.OrderID != "" {
		c.journalSave(ctx, failed)
	}
	if f.Kind == KindUnauthenticated {
		c.signOut(ctx, gen)
	}
	return f
}

func (c *Coordinator) transitionLocked(to domain.CheckoutStatus) {
	from := c.session.Status
	if !domain.CanTransitionTo(from, to) {
		c.log.Error("illegal checkout transition", zap.Stringer("from", from), zap.Stringer("to", to))
		return
	}
	c.session.Status = to
}

func (c *Coordinator) scheduleHomeLocked(gen uint64) {
	if c.stopTimer != nil {
		c.stopTimer()
	}
	c.stopTimer = c.afterFunc(c.cfg.SuccessDelay, func() {
		c.mu.Lock()
		if !c.current(gen) {
			c.mu.Unlock()
			return
		}
		c.showSuccess = false
		c.stopTimer = nil
		c.mu.Unlock()
		c.deps.Navigator.Navigate(c.cfg.HomePath)
	})
}

func (c *Coordinator) alreadySucceeded(ctx context.Context, orderID string) bool {
	if c.deps.Journal == nil {
		return false
	}
	e, err := c.deps.Journal.Lookup(ctx, orderID)
	if err != nil {
		if !errors.Is(err, journal.ErrNotFound) {
			c.log.Warn("journal lookup failed", zap.String("order_id", orderID), zap.Error(err))
		}
		return false
	}
	return e.Status == domain.CheckoutStatusSucceeded
}

// journalSave is best effort; a journal outage never fails a checkout.
func (c *Coordinator) journalSave(ctx context.Context, s domain.CheckoutSession) {
	if c.deps.Journal == nil || s.OrderID == "" {
		return
	}
	err := c.deps.Journal.UpdateStatus(ctx, s.OrderID, s.Status)
	if errors.Is(err, journal.ErrNotFound) {
		err = c.deps.Journal.Record(ctx, journal.Entry{
			OrderID:       s.OrderID,
			SessionID:     c.cfg.SessionID,
			PaymentMethod: s.PaymentMethod,
			Amount:        s.Amount,
			Status:        s.Status,
		})
	}
	if err != nil {
		c.log.Warn("failed to write checkout journal",
			zap.String("order_id", s.OrderID),
			zap.Stringer("status", s.Status),
			zap.Error(err))
	}
}
