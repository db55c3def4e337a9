package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/kvstore"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Collection is one ordered list of line items stored under a single key.
type Collection[T domain.CatalogEntity] struct {
	repo *Repository
	key  string
	kind string
}

// Items returns the collection as currently persisted.
func (c *Collection[T]) Items(ctx context.Context) ([]domain.LineItem[T], error) {
	return c.load(ctx)
}

// Add increments the quantity of an existing line with the same id, or appends
// a new line. Either way the line takes the entity's current price. Quantities
// below 1 count as 1.
func (c *Collection[T]) Add(ctx context.Context, entity T, quantity int) ([]domain.LineItem[T], error) {
	if quantity < 1 {
		quantity = 1
	}
	id := entity.CatalogID()
	return c.mutate(ctx, "add", func(lines []domain.LineItem[T]) ([]domain.LineItem[T], bool) {
		if i := indexOf(lines, id); i >= 0 {
			// re-adding refreshes the price snapshot
			lines[i].UnitPrice = domain.RoundMoney(entity.CatalogPrice())
			lines[i].Payload = entity
			lines[i].SetQuantity(lines[i].Quantity + quantity)
			return lines, true
		}
		return append(lines, domain.NewLineItem(entity, quantity, c.repo.now().UTC())), true
	}, zap.Int64("item_id", id), zap.Int("quantity", quantity))
}

// Remove drops the line with itemID. Removing an absent id is a no-op.
func (c *Collection[T]) Remove(ctx context.Context, itemID int64) ([]domain.LineItem[T], error) {
	return c.mutate(ctx, "remove", func(lines []domain.LineItem[T]) ([]domain.LineItem[T], bool) {
		return removeLine(lines, itemID)
	}, zap.Int64("item_id", itemID))
}

// UpdateQuantity sets the quantity of itemID; quantity <= 0 removes the line.
// An unknown id leaves the collection untouched and is not an error.
func (c *Collection[T]) UpdateQuantity(ctx context.Context, itemID int64, quantity int) ([]domain.LineItem[T], error) {
	if quantity <= 0 {
		return c.Remove(ctx, itemID)
	}
	return c.mutate(ctx, "update_quantity", func(lines []domain.LineItem[T]) ([]domain.LineItem[T], bool) {
		i := indexOf(lines, itemID)
		if i < 0 {
			c.repo.logger.Debug("update of unknown cart line ignored",
				zap.String("kind", c.kind), zap.Int64("item_id", itemID))
			return lines, false
		}
		lines[i].SetQuantity(quantity)
		return lines, true
	}, zap.Int64("item_id", itemID), zap.Int("quantity", quantity))
}

func (c *Collection[T]) Clear(ctx context.Context) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	return c.clear(ctx)
}

func (c *Collection[T]) Total(ctx context.Context) (decimal.Decimal, error) {
	lines, err := c.load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.Subtotal(lines), nil
}

func (c *Collection[T]) ItemCount(ctx context.Context) (int, error) {
	lines, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	return pricing.ItemCount(lines), nil
}

func (c *Collection[T]) mutate(
	ctx context.Context,
	op string,
	fn func([]domain.LineItem[T]) ([]domain.LineItem[T], bool),
	fields ...zap.Field,
) ([]domain.LineItem[T], error) {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()

	lines, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	next, changed := fn(lines)
	if !changed {
		return next, nil
	}
	if err := c.save(ctx, next); err != nil {
		c.repo.logger.Error("cart mutation failed",
			append(fields, zap.String("kind", c.kind), zap.String("op", op), zap.Error(err))...)
		return nil, err
	}
	c.repo.logger.Debug("cart mutated",
		append(fields, zap.String("kind", c.kind), zap.String("op", op), zap.Int("lines", len(next)))...)
	return next, nil
}

func (c *Collection[T]) load(ctx context.Context) ([]domain.LineItem[T], error) {
	raw, err := c.repo.store.Get(ctx, c.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []domain.LineItem[T]{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, c.key, err)
	}

	var lines []domain.LineItem[T]
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistence, c.key, err)
	}
	if lines == nil {
		lines = []domain.LineItem[T]{}
	}
	for i := range lines {
		lines[i].Normalize()
	}
	return lines, nil
}

func (c *Collection[T]) save(ctx context.Context, lines []domain.LineItem[T]) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersistence, c.key, err)
	}
	return c.repo.write(ctx, c.key, string(data))
}

func (c *Collection[T]) clear(ctx context.Context) error {
	if err := c.repo.store.Remove(ctx, c.key); err != nil {
		return fmt.Errorf("%w: clear %s: %w", ErrPersistence, c.key, err)
	}
	return nil
}

// consume subtracts the quantities in taken from the stored lines and drops
// the lines that reach zero. Lines added after taken was read are left alone.
func (c *Collection[T]) consume(ctx context.Context, taken []domain.LineItem[T]) error {
	lines, err := c.load(ctx)
	if err != nil {
		return err
	}
	qty := make(map[int64]int, len(taken))
	for _, l := range taken {
		qty[l.ItemID] += l.Quantity
	}

	out := make([]domain.LineItem[T], 0, len(lines))
	for _, l := range lines {
		if n, ok := qty[l.ItemID]; ok {
			if l.Quantity <= n {
				continue
			}
			l.SetQuantity(l.Quantity - n)
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return c.clear(ctx)
	}
	return c.save(ctx, out)
}

func indexOf[T domain.CatalogEntity](lines []domain.LineItem[T], itemID int64) int {
	for i := range lines {
		if lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func removeLine[T domain.CatalogEntity](lines []domain.LineItem[T], itemID int64) ([]domain.LineItem[T], bool) {
	out := make([]domain.LineItem[T], 0, len(lines))
	for _, l := range lines {
		if l.ItemID != itemID {
			out = append(out, l)
		}
	}
	return out, len(out) != len(lines)
}
