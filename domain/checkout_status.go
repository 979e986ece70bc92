package domain

type CheckoutStatus string

const (
	CheckoutStatusNotStarted              CheckoutStatus = "NOT_STARTED"
	CheckoutStatusOrderCreated            CheckoutStatus = "ORDER_CREATED"
	CheckoutStatusAwaitingGatewayRedirect CheckoutStatus = "AWAITING_GATEWAY_REDIRECT"
	CheckoutStatusReconcilingReturn       CheckoutStatus = "RECONCILING_RETURN"
	CheckoutStatusSucceeded               CheckoutStatus = "SUCCEEDED"
	CheckoutStatusCancelled               CheckoutStatus = "CANCELLED"
	CheckoutStatusFailed                  CheckoutStatus = "FAILED"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	// a fresh coordinator may be entered straight from the gateway return URL
	CheckoutStatusNotStarted: {
		CheckoutStatusOrderCreated,
		CheckoutStatusFailed,
		CheckoutStatusReconcilingReturn,
		CheckoutStatusCancelled,
	},
	CheckoutStatusOrderCreated: {
		CheckoutStatusAwaitingGatewayRedirect,
		CheckoutStatusSucceeded,
		CheckoutStatusFailed,
	},
	CheckoutStatusAwaitingGatewayRedirect: {
		CheckoutStatusReconcilingReturn,
		CheckoutStatusCancelled,
		CheckoutStatusFailed,
	},
	CheckoutStatusReconcilingReturn: {
		CheckoutStatusSucceeded,
		CheckoutStatusFailed,
	},
	CheckoutStatusSucceeded: {CheckoutStatusNotStarted},
	CheckoutStatusCancelled: {CheckoutStatusNotStarted},
	CheckoutStatusFailed:    {CheckoutStatusNotStarted},
}

// CanTransitionTo reports whether the checkout state machine allows from -> to.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSucceeded || s == CheckoutStatusCancelled || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
