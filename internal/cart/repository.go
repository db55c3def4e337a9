package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/kvstore"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository owns the product and voucher collections inside the store and is
// their only writer. Mutations of both collections go through one mutex so a
// read-modify-write never interleaves with another.
type Repository struct {
	mu     sync.Mutex
	store  kvstore.Store
	logger *zap.Logger
	now    func() time.Time

	products *Collection[domain.Product]
	vouchers *Collection[domain.Voucher]
}

type Option func(*Repository)

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source used for AddedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func NewRepository(store kvstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.products = &Collection[domain.Product]{repo: r, key: kvstore.KeyProductCart, kind: "product"}
	r.vouchers = &Collection[domain.Voucher]{repo: r, key: kvstore.KeyVoucherCart, kind: "voucher"}
	return r
}

func (r *Repository) Products() *Collection[domain.Product] { return r.products }
func (r *Repository) Vouchers() *Collection[domain.Voucher] { return r.vouchers }

// Snapshot reads both collections fresh from the store.
func (r *Repository) Snapshot(ctx context.Context) (domain.CartState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.products.load(ctx)
	if err != nil {
		return domain.CartState{}, err
	}
	vouchers, err := r.vouchers.load(ctx)
	if err != nil {
		return domain.CartState{}, err
	}
	return domain.CartState{ProductLines: products, VoucherLines: vouchers}, nil
}

// ClearAll empties both collections. Both removals are attempted even if the
// first one fails.
func (r *Repository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := errors.Join(r.products.clear(ctx), r.vouchers.clear(ctx))
	if err != nil {
		r.logger.Error("clear cart failed", zap.Error(err))
		return err
	}
	r.logger.Info("cart cleared")
	return nil
}

// Consume takes an ordered snapshot out of the cart. The snapshot quantities
// are subtracted per line, so items added or incremented after state was read
// stay in the cart. Both collections are attempted even if the first fails.
func (r *Repository) Consume(ctx context.Context, state domain.CartState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := errors.Join(
		r.products.consume(ctx, state.ProductLines),
		r.vouchers.consume(ctx, state.VoucherLines),
	)
	if err != nil {
		r.logger.Error("consume cart failed", zap.Error(err))
		return err
	}
	r.logger.Info("ordered lines removed from cart",
		zap.Int("product_lines", len(state.ProductLines)),
		zap.Int("voucher_lines", len(state.VoucherLines)))
	return nil
}

func (r *Repository) Summary(ctx context.Context, shipping *domain.ShippingOption) (pricing.Summary, error) {
	state, err := r.Snapshot(ctx)
	if err != nil {
		return pricing.Summary{}, err
	}
	return pricing.Summarize(state, shipping), nil
}

// GrandTotal is products + vouchers + the selected shipping fee (if any).
func (r *Repository) GrandTotal(ctx context.Context, shipping *domain.ShippingOption) (decimal.Decimal, error) {
	s, err := r.Summary(ctx, shipping)
	if err != nil {
		return decimal.Zero, err
	}
	return s.GrandTotal, nil
}

func (r *Repository) TotalItemCount(ctx context.Context) (int, error) {
	s, err := r.Summary(ctx, nil)
	if err != nil {
		return 0, err
	}
	return s.ItemCount, nil
}

// write persists value under key, retrying once before giving up.
func (r *Repository) write(ctx context.Context, key, value string) error {
	err := r.store.Set(ctx, key, value)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, key, err)
	}
	r.logger.Warn("cart write failed, retrying", zap.String("key", key), zap.Error(err))
	if err = r.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, key, err)
	}
	return nil
}
