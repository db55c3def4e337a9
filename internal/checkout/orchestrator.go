// Package checkout runs the gated pipeline that turns the cart into an order
// and a payment session: address, shipping, payment data, order submission,
// payment session, redirect.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/opener"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Orchestrator struct {
	cart       CartStore
	orders     *OrderHandler
	payments   *PaymentHandler
	quoter     shipping.Quoter
	opener     opener.Opener
	publisher  events.Publisher
	preference RedirectPreference
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithOpener(op opener.Opener) Option {
	return func(o *Orchestrator) { o.opener = op }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithRedirectPreference(p RedirectPreference) Option {
	return func(o *Orchestrator) { o.preference = p }
}

func NewOrchestrator(cart CartStore, orders *OrderHandler, payments *PaymentHandler, quoter shipping.Quoter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:       cart,
		orders:     orders,
		payments:   payments,
		quoter:     quoter,
		opener:     opener.Disabled{},
		publisher:  events.Noop{},
		preference: PreferProduction,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result is the outcome of a submit or a payment attempt.
type Result struct {
	SessionID   string                `json:"session_id,omitempty"`
	Status      domain.CheckoutStatus `json:"status"`
	OrderID     int64                 `json:"order_id"`
	PaymentID   string                `json:"payment_id,omitempty"`
	Total       decimal.Decimal       `json:"total"`
	Installment decimal.Decimal       `json:"installment_amount"`
	RedirectURL string                `json:"redirect_url,omitempty"`
	Redirected  bool                  `json:"redirected"`
	// RedirectErr is set when the URL could not be opened and has to be
	// shown to the user.
	RedirectErr *RedirectUnavailableError `json:"-"`
	// CartClearErr is set when the order was placed but the local cart could
	// not be emptied.
	CartClearErr error `json:"-"`

	pending []events.Event
}

// Begin starts a new session in the Empty state.
func (o *Orchestrator) Begin() *Session {
	s := &Session{
		id:             uuid.NewString(),
		idempotencyKey: uuid.NewString(),
		createdAt:      o.now().UTC(),
		status:         domain.CheckoutStatusEmpty,
		shipping:       shipping.NewSelector(o.quoter, o.logger),
		payment:        domain.NewPaymentDraft(),
	}
	o.logger.Info("checkout started", zap.String("session_id", s.id))
	return s
}

// SelectAddress sets the delivery address and re-quotes shipping. Any
// earlier shipping choice is dropped. The address is kept even if the quote
// fails.
func (o *Orchestrator) SelectAddress(ctx context.Context, s *Session, addr domain.Address) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !domain.CanTransitionTo(s.status, domain.CheckoutStatusAddressSelected) {
		return s.viewLocked(), ErrIllegalTransition
	}
	cep, err := shipping.NormalizePostalCode(addr.PostalCode)
	if err != nil {
		return s.viewLocked(), invalid("address", err.Error())
	}
	addr.PostalCode = cep

	s.address = &addr
	s.status = domain.CheckoutStatusAddressSelected
	s.shipping.Reset()
	o.logger.Info("checkout address selected",
		zap.String("session_id", s.id), zap.Int64("address_id", addr.ID))

	if _, err := o.refreshLocked(ctx, s); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// RefreshShipping re-quotes after the cart changed and re-applies the
// cheapest-option default.
func (o *Orchestrator) RefreshShipping(ctx context.Context, s *Session) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsCommitted() {
		return s.viewLocked(), ErrIllegalTransition
	}
	if s.address == nil {
		return s.viewLocked(), invalid("address", "no delivery address selected")
	}
	if _, err := o.refreshLocked(ctx, s); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

func (o *Orchestrator) refreshLocked(ctx context.Context, s *Session) (*domain.ShippingOption, error) {
	state, err := o.cart.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return o.quoteLocked(ctx, s, state)
}

func (o *Orchestrator) quoteLocked(ctx context.Context, s *Session, state domain.CartState) (*domain.ShippingOption, error) {
	selected, err := s.shipping.Refresh(ctx, state, s.address)
	if s.status == domain.CheckoutStatusShippingQuoted && selected == nil {
		s.status = domain.CheckoutStatusAddressSelected
	}
	if err != nil {
		if errors.Is(err, shipping.ErrInvalidPostalCode) {
			return nil, invalid("address", err.Error())
		}
		return nil, fmt.Errorf("failed to quote shipping: %w", err)
	}
	if selected != nil && s.status == domain.CheckoutStatusAddressSelected {
		s.status = domain.CheckoutStatusShippingQuoted
	}
	return selected, nil
}

// SelectShipping overrides the default with one of the quoted options.
func (o *Orchestrator) SelectShipping(s *Session, carrierCode string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !domain.CanTransitionTo(s.status, domain.CheckoutStatusShippingQuoted) {
		return s.viewLocked(), ErrIllegalTransition
	}
	if _, err := s.shipping.Select(carrierCode); err != nil {
		return s.viewLocked(), invalid("shipping", fmt.Sprintf("carrier %q was not quoted", carrierCode))
	}
	if s.status == domain.CheckoutStatusAddressSelected {
		s.status = domain.CheckoutStatusShippingQuoted
	}
	return s.viewLocked(), nil
}

// UpdatePayment runs the address and payment-data gates and keeps the draft
// when both pass.
func (o *Orchestrator) UpdatePayment(s *Session, draft domain.PaymentDraft) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsCommitted() {
		return s.viewLocked(), ErrIllegalTransition
	}
	if s.address == nil {
		return s.viewLocked(), invalid("address", "no delivery address selected")
	}
	draft = normalizeDraft(draft)
	if err := ValidatePayment(draft); err != nil {
		return s.viewLocked(), err
	}
	s.payment = draft
	s.status = domain.CheckoutStatusPaymentDataValid
	return s.viewLocked(), nil
}

// Submit places the order and opens the payment page. Gates run first and
// leave the cart untouched when they fail. A shipping quote made for a
// different cart or address is redone before the order is built. Once the
// backend accepts the order the ordered lines leave the cart, whether or not
// the payment session can be created; in that case the returned Result
// carries the order id together with the error, and RetryPayment can be used
// later. Events are published once the pipeline is done.
func (o *Orchestrator) Submit(ctx context.Context, s *Session) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := o.logger.With(zap.String("session_id", s.id))

	if s.status.IsCommitted() {
		return nil, fmt.Errorf("%w: order %d already submitted", ErrIllegalTransition, s.orderID)
	}
	if s.address == nil {
		return nil, invalid("address", "no delivery address selected")
	}
	if err := ValidatePayment(s.payment); err != nil {
		return nil, err
	}

	state, err := o.cart.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if state.IsEmpty() {
		return nil, invalid("cart", "cart is empty")
	}
	if !s.shipping.Current(state, s.address) {
		log.Info("cart changed since shipping was quoted, quoting again")
		if _, err := o.quoteLocked(ctx, s, state); err != nil {
			return nil, err
		}
	}
	selected := s.shipping.Selected()
	summary := pricing.Summarize(state, selected)

	orderID, err := o.orders.create(ctx, buildOrderRequest(state, s.address, selected, s.idempotencyKey))
	if err != nil {
		log.Warn("order submission failed", zap.Error(err))
		return nil, err
	}
	// the gates above stand in for PaymentDataValid
	s.orderID = orderID
	s.status = domain.CheckoutStatusOrderSubmitted
	log.Info("order submitted", zap.Int64("order_id", orderID), zap.String("total", summary.GrandTotal.StringFixed(2)))

	res := &Result{
		SessionID:   s.id,
		OrderID:     orderID,
		Total:       summary.GrandTotal,
		Installment: pricing.Installment(summary.GrandTotal, s.payment.Installments),
	}
	defer o.flush(ctx, res)
	o.queue(res, events.Event{Type: events.OrderSubmitted, SessionID: s.id, OrderID: orderID, Amount: &summary.GrandTotal})

	// the order exists, so the cart follows it even if the caller went away
	if err := o.cart.Consume(context.WithoutCancel(ctx), state); err != nil {
		log.Error("order placed but cart could not be cleared", zap.Int64("order_id", orderID), zap.Error(err))
		res.CartClearErr = err
	}

	if err := o.paySessionLocked(ctx, s, res); err != nil {
		res.Status = s.status
		return res, err
	}
	res.Status = s.status
	return res, nil
}

// RetryPayment creates a new payment session for the order this session
// already placed.
func (o *Orchestrator) RetryPayment(ctx context.Context, s *Session) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orderID == 0 || !domain.CanTransitionTo(s.status, domain.CheckoutStatusPaymentSessionCreated) {
		return nil, ErrIllegalTransition
	}
	if err := ValidatePayment(s.payment); err != nil {
		return nil, err
	}
	res := &Result{SessionID: s.id, OrderID: s.orderID}
	defer o.flush(ctx, res)
	if err := o.paySessionLocked(ctx, s, res); err != nil {
		res.Status = s.status
		return res, err
	}
	res.Status = s.status
	return res, nil
}

func (o *Orchestrator) paySessionLocked(ctx context.Context, s *Session, res *Result) error {
	ps, url, err := o.createPayment(ctx, s.orderID, s.payment)
	if err != nil {
		o.logger.Warn("payment session failed",
			zap.String("session_id", s.id), zap.Int64("order_id", s.orderID), zap.Error(err))
		return err
	}
	s.paymentSession = ps
	s.redirectURL = url
	s.status = domain.CheckoutStatusPaymentSessionCreated
	fillPayment(res, ps, url, s.payment.Installments)
	o.queue(res, events.Event{
		Type:      events.PaymentSessionCreated,
		SessionID: s.id,
		OrderID:   s.orderID,
		PaymentID: res.PaymentID,
	})

	if o.redirect(s.id, s.orderID, res) {
		s.status = domain.CheckoutStatusRedirected
	}
	return nil
}

// PayOrder creates a payment session for an order placed earlier, outside
// any checkout session.
func (o *Orchestrator) PayOrder(ctx context.Context, orderID int64, draft domain.PaymentDraft) (*Result, error) {
	if orderID <= 0 {
		return nil, invalid("order_id", "must be positive")
	}
	draft = normalizeDraft(draft)
	if err := ValidatePayment(draft); err != nil {
		return nil, err
	}
	ps, url, err := o.createPayment(ctx, orderID, draft)
	if err != nil {
		o.logger.Warn("payment session failed", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	key := "order-" + strconv.FormatInt(orderID, 10)
	res := &Result{OrderID: orderID, Status: domain.CheckoutStatusPaymentSessionCreated}
	defer o.flush(ctx, res)
	fillPayment(res, ps, url, draft.Installments)
	o.queue(res, events.Event{Type: events.PaymentSessionCreated, SessionID: key, OrderID: orderID, PaymentID: res.PaymentID})
	if o.redirect(key, orderID, res) {
		res.Status = domain.CheckoutStatusRedirected
	}
	return res, nil
}

func (o *Orchestrator) createPayment(ctx context.Context, orderID int64, draft domain.PaymentDraft) (*api.PaymentSession, string, error) {
	ps, err := o.payments.create(ctx, orderID, draft)
	if err != nil {
		return nil, "", err
	}
	url, ok := o.preference.Pick(ps)
	if !ok {
		return nil, "", &api.RemoteError{Op: "create payment", Message: "payment response has no redirect url"}
	}
	return ps, url, nil
}

// redirect opens the payment URL. When that is not possible the URL is left
// in res for the user to open by hand.
func (o *Orchestrator) redirect(key string, orderID int64, res *Result) bool {
	url := res.RedirectURL
	if !o.opener.CanOpen(url) {
		res.RedirectErr = &RedirectUnavailableError{URL: url}
		o.logger.Info("payment url needs manual opening", zap.Int64("order_id", orderID), zap.String("url", url))
		return false
	}
	if err := o.opener.Open(url); err != nil {
		res.RedirectErr = &RedirectUnavailableError{URL: url, Err: err}
		o.logger.Warn("failed to open payment url", zap.Int64("order_id", orderID), zap.Error(err))
		return false
	}
	res.Redirected = true
	o.queue(res, events.Event{Type: events.Redirected, SessionID: key, OrderID: orderID, RedirectURL: url})
	return true
}

func (o *Orchestrator) queue(res *Result, e events.Event) {
	e.OccurredAt = o.now().UTC()
	res.pending = append(res.pending, e)
}

// flush publishes the queued events in order. Publishing is best effort and
// is detached from ctx cancellation: the steps they describe already happened.
func (o *Orchestrator) flush(ctx context.Context, res *Result) {
	ctx = context.WithoutCancel(ctx)
	for _, e := range res.pending {
		if err := o.publisher.Publish(ctx, e); err != nil {
			o.logger.Warn("failed to publish checkout event", zap.String("type", string(e.Type)), zap.Error(err))
		}
	}
	res.pending = nil
}

func fillPayment(res *Result, ps *api.PaymentSession, url string, installments int) {
	res.PaymentID = ps.PaymentID.String()
	res.RedirectURL = url
	if !ps.TransactionAmount.IsZero() {
		res.Total = ps.TransactionAmount
	}
	res.Installment = pricing.Installment(res.Total, installments)
}

func buildOrderRequest(state domain.CartState, addr *domain.Address, selected *domain.ShippingOption, key string) api.CreateOrderRequest {
	req := api.CreateOrderRequest{
		AddressID:      addr.ID,
		DeliveryFee:    pricing.ShippingFee(selected),
		Products:       make([]api.OrderProduct, 0, len(state.ProductLines)),
		Vouchers:       make([]api.OrderVoucher, 0, len(state.VoucherLines)),
		IdempotencyKey: key,
	}
	for _, l := range state.ProductLines {
		req.Products = append(req.Products, api.OrderProduct{ProductID: l.ItemID, Quantity: l.Quantity})
	}
	for _, l := range state.VoucherLines {
		req.Vouchers = append(req.Vouchers, api.OrderVoucher{VoucherID: l.ItemID, Quantity: l.Quantity})
	}
	return req
}
