package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderBackend is the order history and payment part of the backend client.
type OrderBackend interface {
	ListOrders(ctx context.Context) ([]api.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*api.Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string) error
	GetPaymentStatus(ctx context.Context, paymentID string) (*api.PaymentStatus, error)
	CancelPayment(ctx context.Context, paymentID string) error
	RetryPayment(ctx context.Context, paymentID string) (*api.PaymentSession, error)
}

type OrdersHandler struct {
	backend OrderBackend
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(backend OrderBackend, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{
		backend: backend,
		timeout: timeout,
		logger:  logger,
	}
}

// OrderResponse is a backend order with its computed total.
type OrderResponse struct {
	api.Order
	Total decimal.Decimal `json:"total"`
}

func newOrderResponse(o api.Order) OrderResponse {
	return OrderResponse{Order: o, Total: o.Total()}
}

type CancelOrderRequestDTO struct {
	Reason string `json:"reason"`
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.backend.ListOrders(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	order, err := h.backend.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newOrderResponse(*order))
}

func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req CancelOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "reason is required", "reason")
		return
	}
	if err := h.backend.CancelOrder(ctx, orderID, req.Reason); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("order cancelled", zap.Int64("order_id", orderID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.backend.GetPaymentStatus(ctx, chi.URLParam(r, "payment_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *OrdersHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	paymentID := chi.URLParam(r, "payment_id")
	if err := h.backend.CancelPayment(ctx, paymentID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("payment cancelled", zap.String("payment_id", paymentID))
	w.WriteHeader(http.StatusNoContent)
}

// RetryPayment asks the backend for a fresh hosted page for an existing
// payment. The URL is returned for the caller to open.
func (h *OrdersHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ps, err := h.backend.RetryPayment(ctx, chi.URLParam(r, "payment_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ps)
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer", "")
		return 0, false
	}
	return orderID, true
}
