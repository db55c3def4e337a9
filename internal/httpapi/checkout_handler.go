package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	orch     *checkout.Orchestrator
	sessions *checkout.Registry
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(orch *checkout.Orchestrator, sessions *checkout.Registry, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		orch:     orch,
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

type SelectShippingRequestDTO struct {
	CarrierCode string `json:"carrier_code"`
}

// ResultResponse adds the non-fatal outcomes of a submit to the result.
type ResultResponse struct {
	*checkout.Result
	RedirectError  string `json:"redirect_error,omitempty"`
	CartClearError string `json:"cart_clear_error,omitempty"`
}

func newResultResponse(res *checkout.Result) ResultResponse {
	out := ResultResponse{Result: res}
	if res.RedirectErr != nil {
		out.RedirectError = res.RedirectErr.Error()
	}
	if res.CartClearErr != nil {
		out.CartClearError = res.CartClearErr.Error()
	}
	return out
}

func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	s := h.orch.Begin()
	h.sessions.Put(s)
	respondJSON(w, http.StatusCreated, s.View())
}

func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.View())
}

func (h *CheckoutHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, h.logger, checkout.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var addr domain.Address
	if !decodeJSON(w, r, &addr) {
		return
	}
	view, err := h.orch.SelectAddress(ctx, s, addr)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.orch.RefreshShipping(ctx, s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectShippingRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.orch.SelectShipping(s, req.CarrierCode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var draft domain.PaymentDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	view, err := h.orch.UpdatePayment(s, draft)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := h.orch.Submit(ctx, s)
	h.respondResult(w, res, err)
}

func (h *CheckoutHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := h.orch.RetryPayment(ctx, s)
	h.respondResult(w, res, err)
}

func (h *CheckoutHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var draft domain.PaymentDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	res, err := h.orch.PayOrder(ctx, orderID, draft)
	h.respondResult(w, res, err)
}

// respondResult reports a placed order whose payment failed as a gateway
// error that still names the order.
func (h *CheckoutHandler) respondResult(w http.ResponseWriter, res *checkout.Result, err error) {
	if err != nil {
		if res != nil && res.OrderID != 0 {
			h.logger.Warn("order placed without payment session", zap.Int64("order_id", res.OrderID), zap.Error(err))
			respondError(w, http.StatusBadGateway, "payment_failed", err.Error(),
				fmt.Sprintf("order %d was placed; retry the payment", res.OrderID))
			return
		}
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newResultResponse(res))
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return s, true
}
