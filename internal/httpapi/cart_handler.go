package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const MaxLineQuantity = 99

type CartHandler struct {
	repo    *cart.Repository
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(repo *cart.Repository, timeout time.Duration, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
	}
}

type CartResponse struct {
	Products []domain.ProductLine `json:"products"`
	Vouchers []domain.VoucherLine `json:"vouchers"`
	Summary  pricing.Summary      `json:"summary"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.repo.Snapshot(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, CartResponse{
		Products: state.ProductLines,
		Vouchers: state.VoucherLines,
		Summary:  pricing.Summarize(state, nil),
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.repo.ClearAll(ctx); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AddLineRequestDTO[T domain.CatalogEntity] struct {
	Item     T   `json:"item"`
	Quantity int `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// lineHandler serves one cart collection.
type lineHandler[T domain.CatalogEntity] struct {
	*CartHandler
	coll *cart.Collection[T]
}

func (h lineHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lines, err := h.coll.Items(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (h lineHandler[T]) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddLineRequestDTO[T]
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Item.CatalogID() <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id must be positive", "")
		return
	}
	if req.Item.CatalogPrice().IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative", "")
		return
	}
	if req.Quantity < 1 || req.Quantity > MaxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99", "")
		return
	}

	lines, err := h.coll.Add(ctx, req.Item, req.Quantity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, lines)
}

func (h lineHandler[T]) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity < 0 || req.Quantity > MaxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99", "")
		return
	}

	lines, err := h.coll.UpdateQuantity(ctx, itemID, req.Quantity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (h lineHandler[T]) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	lines, err := h.coll.Remove(ctx, itemID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (h lineHandler[T]) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.coll.Clear(ctx); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h lineHandler[T]) routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Delete("/", h.Clear)
	r.Put("/{item_id}", h.UpdateQuantity)
	r.Delete("/{item_id}", h.Remove)
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer", "")
		return 0, false
	}
	return id, true
}
