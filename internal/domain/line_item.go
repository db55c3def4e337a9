package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every stored amount is kept at.
const MoneyPlaces = 2

// RoundMoney normalizes an amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LineItem is one cart entry. UnitPrice is snapshotted when the line is
// created and LineTotal is always UnitPrice * Quantity.
type LineItem[T CatalogEntity] struct {
	ItemID    int64           `json:"item_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
	Payload   T               `json:"payload"`
}

func NewLineItem[T CatalogEntity](entity T, quantity int, addedAt time.Time) LineItem[T] {
	item := LineItem[T]{
		ItemID:    entity.CatalogID(),
		UnitPrice: RoundMoney(entity.CatalogPrice()),
		AddedAt:   addedAt,
		Payload:   entity,
	}
	item.SetQuantity(quantity)
	return item
}

// SetQuantity updates the quantity and recomputes the line total.
func (l *LineItem[T]) SetQuantity(quantity int) {
	l.Quantity = quantity
	l.LineTotal = RoundMoney(l.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Normalize re-derives the line total from price and quantity and rounds
// amounts to cents. Used after decoding persisted lines.
func (l *LineItem[T]) Normalize() {
	l.UnitPrice = RoundMoney(l.UnitPrice)
	l.SetQuantity(l.Quantity)
}

type ProductLine = LineItem[Product]
type VoucherLine = LineItem[Voucher]
