package httpapi

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/kvstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend keeps orders and payments in memory.
type stubBackend struct {
	m         sync.Mutex
	orders    map[int64]api.Order
	payments  map[string]*api.PaymentStatus
	cancelled map[int64]string
	voided    []string
	err       error
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		orders: map[int64]api.Order{
			42: {
				ID:          42,
				Status:      api.OrderStatusPending,
				DeliveryFee: decimal.RequireFromString("15.00"),
				Products: []api.OrderProductLine{
					{Quantity: 3, Product: domain.Product{ID: 1, Price: decimal.RequireFromString("10.00")}},
				},
				Vouchers: []api.OrderVoucherLine{
					{Quantity: 0, Voucher: domain.Voucher{ID: 5, Price: decimal.RequireFromString("49.90")}},
				},
			},
		},
		payments: map[string]*api.PaymentStatus{
			"pay-9": {PaymentID: "pay-9", Status: "pending"},
		},
		cancelled: map[int64]string{},
	}
}

var errOrderNotFound = &api.RemoteError{Op: "get order", StatusCode: 404, Message: "not found"}

func (b *stubBackend) ListOrders(context.Context) ([]api.Order, error) {
	b.m.Lock()
	defer b.m.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	out := make([]api.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	return out, nil
}

func (b *stubBackend) GetOrder(_ context.Context, orderID int64) (*api.Order, error) {
	b.m.Lock()
	defer b.m.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	o, ok := b.orders[orderID]
	if !ok {
		return nil, errOrderNotFound
	}
	return &o, nil
}

func (b *stubBackend) CancelOrder(_ context.Context, orderID int64, reason string) error {
	b.m.Lock()
	defer b.m.Unlock()
	if b.err != nil {
		return b.err
	}
	b.cancelled[orderID] = reason
	return nil
}

func (b *stubBackend) GetPaymentStatus(_ context.Context, paymentID string) (*api.PaymentStatus, error) {
	b.m.Lock()
	defer b.m.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	st, ok := b.payments[paymentID]
	if !ok {
		return nil, &api.RemoteError{Op: "payment status", StatusCode: 404}
	}
	return st, nil
}

func (b *stubBackend) CancelPayment(_ context.Context, paymentID string) error {
	b.m.Lock()
	defer b.m.Unlock()
	if b.err != nil {
		return b.err
	}
	b.voided = append(b.voided, paymentID)
	return nil
}

func (b *stubBackend) RetryPayment(_ context.Context, paymentID string) (*api.PaymentSession, error) {
	b.m.Lock()
	defer b.m.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return &api.PaymentSession{PaymentID: api.ID(paymentID), InitPoint: "https://pay.example.com/p/" + paymentID + "/retry"}, nil
}

func (b *stubBackend) setErr(err error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.err = err
}

func TestOrders_ListIncludesTotals(t *testing.T) {
	ts := newTestServer(kvstore.NewMemoryStore())

	rec := ts.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	orders := decodeBody[[]OrderResponse](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(42), orders[0].ID)
	// a voucher line without a quantity counts once
	assert.Equal(t, "94.90", orders[0].Total.StringFixed(2))
}

func TestOrders_Get(t *testing.T) {
	ts := newTestServer(kvstore.NewMemoryStore())

	rec := ts.do(t, http.MethodGet, "/api/v1/orders/42", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decodeBody[OrderResponse](t, rec)
	assert.Equal(t, api.OrderStatusPending, order.Status)
	assert.Equal(t, "94.90", order.Total.StringFixed(2))

	rec = ts.do(t, http.MethodGet, "/api/v1/orders/7", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_order_id", decodeBody[ErrorResponse](t, rec).Code)
}

func TestOrders_Cancel(t *testing.T) {
	ts := newTestServer(kvstore.NewMemoryStore())

	rec := ts.do(t, http.MethodPost, "/api/v1/orders/42/cancel", CancelOrderRequestDTO{Reason: "  changed my mind "})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, "changed my mind", ts.backend.cancelled[42])

	rec = ts.do(t, http.MethodPost, "/api/v1/orders/42/cancel", CancelOrderRequestDTO{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason", decodeBody[ErrorResponse](t, rec).Details)

	rec = ts.do(t, http.MethodPost, "/api/v1/orders/0/cancel", CancelOrderRequestDTO{Reason: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders_UnauthorizedBackend(t *testing.T) {
	ts := newTestServer(kvstore.NewMemoryStore())
	ts.backend.setErr(&api.RemoteError{Op: "list orders", StatusCode: 401, Message: "token expired"})

	rec := ts.do(t, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeBody[ErrorResponse](t, rec).Code)
}

func TestPayments_StatusCancelRetry(t *testing.T) {
	ts := newTestServer(kvstore.NewMemoryStore())

	rec := ts.do(t, http.MethodGet, "/api/v1/payments/pay-9", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decodeBody[api.PaymentStatus](t, rec)
	assert.Equal(t, api.ID("pay-9"), status.PaymentID)
	assert.Equal(t, "pending", status.Status)

	rec = ts.do(t, http.MethodGet, "/api/v1/payments/missing", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/payments/pay-9/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ps := decodeBody[api.PaymentSession](t, rec)
	assert.Equal(t, "https://pay.example.com/p/pay-9/retry", ps.InitPoint)

	rec = ts.do(t, http.MethodPost, "/api/v1/payments/pay-9/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"pay-9"}, ts.backend.voided)
}

func TestPayments_BackendFailure(t *testing.T) {
	ts := newTestServer(kvstore.NewMemoryStore())
	ts.backend.setErr(&api.RemoteError{Op: "cancel payment", StatusCode: 503})

	rec := ts.do(t, http.MethodPost, "/api/v1/payments/pay-9/cancel", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "remote_error", body.Code)
	assert.Equal(t, "cancel payment", body.Details)
}
