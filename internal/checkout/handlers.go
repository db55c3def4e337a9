package checkout

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
)

// CartStore is the part of the cart repository checkout reads and empties.
type CartStore interface {
	Snapshot(ctx context.Context) (domain.CartState, error)
	Consume(ctx context.Context, state domain.CartState) error
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (int64, error)
}

type PaymentAPI interface {
	CreatePaymentSession(ctx context.Context, req api.CreatePaymentRequest) (*api.PaymentSession, error)
}

type OrderHandler struct {
	orderClient OrderAPI
	timeout     time.Duration
}

func NewOrderHandler(orderClient OrderAPI, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orderClient: orderClient,
		timeout:     timeout,
	}
}

func (h *OrderHandler) create(ctx context.Context, req api.CreateOrderRequest) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.orderClient.CreateOrder(ctx, req)
}

type PaymentHandler struct {
	paymentClient PaymentAPI
	timeout       time.Duration
}

func NewPaymentHandler(paymentClient PaymentAPI, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		paymentClient: paymentClient,
		timeout:       timeout,
	}
}

func (h *PaymentHandler) create(ctx context.Context, orderID int64, draft domain.PaymentDraft) (*api.PaymentSession, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.paymentClient.CreatePaymentSession(ctx, api.CreatePaymentRequest{
		OrderID:       orderID,
		PaymentMethod: string(draft.Method),
		Installments:  draft.Installments,
		Payer: api.Payer{
			Email: draft.PayerEmail,
			Identification: api.PayerIdentification{
				Type:   draft.TaxIDType,
				Number: draft.PayerTaxID,
			},
		},
	})
}
