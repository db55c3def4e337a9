package domain

type CheckoutStatus string

const (
	CheckoutStatusEmpty                 CheckoutStatus = "EMPTY"
	CheckoutStatusAddressSelected       CheckoutStatus = "ADDRESS_SELECTED"
	CheckoutStatusShippingQuoted        CheckoutStatus = "SHIPPING_QUOTED"
	CheckoutStatusPaymentDataValid      CheckoutStatus = "PAYMENT_DATA_VALID"
	CheckoutStatusOrderSubmitted        CheckoutStatus = "ORDER_SUBMITTED"
	CheckoutStatusPaymentSessionCreated CheckoutStatus = "PAYMENT_SESSION_CREATED"
	CheckoutStatusRedirected            CheckoutStatus = "REDIRECTED"
)

var checkoutOrder = map[CheckoutStatus]int{
	CheckoutStatusEmpty:                 0,
	CheckoutStatusAddressSelected:       1,
	CheckoutStatusShippingQuoted:        2,
	CheckoutStatusPaymentDataValid:      3,
	CheckoutStatusOrderSubmitted:        4,
	CheckoutStatusPaymentSessionCreated: 5,
	CheckoutStatusRedirected:            6,
}

func (s CheckoutStatus) rank() int {
	r, ok := checkoutOrder[s]
	if !ok {
		return -1
	}
	return r
}

// Before reports whether s comes earlier in the pipeline than other.
func (s CheckoutStatus) Before(other CheckoutStatus) bool {
	return s.rank() < other.rank()
}

// IsCommitted is true once the backend accepted the order.
func (s CheckoutStatus) IsCommitted() bool {
	return s.rank() >= CheckoutStatusOrderSubmitted.rank()
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRedirected
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes the linear checkout pipeline. Before the order is
// committed the address, shipping and payment steps may be redone (a new
// address invalidates everything after it). Once committed, only forward moves
// are legal, plus re-creating a payment session for the same order.
func CanTransitionTo(from, to CheckoutStatus) bool {
	f, t := from.rank(), to.rank()
	if f < 0 || t < 0 {
		return false
	}
	if from.IsCommitted() {
		if from == CheckoutStatusPaymentSessionCreated && to == CheckoutStatusPaymentSessionCreated {
			return true
		}
		return t == f+1
	}
	switch to {
	case CheckoutStatusAddressSelected:
		return true
	case CheckoutStatusShippingQuoted, CheckoutStatusPaymentDataValid:
		return f >= CheckoutStatusAddressSelected.rank()
	case CheckoutStatusOrderSubmitted:
		return from == CheckoutStatusPaymentDataValid
	}
	return false
}
