// Package pricing derives cart totals. Everything here is a pure function of
// the line snapshots it is given.
package pricing

import (
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Subtotal sums the line totals of one collection.
func Subtotal[T domain.CatalogEntity](lines []domain.LineItem[T]) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return domain.RoundMoney(total)
}

// ItemCount sums quantities of one collection.
func ItemCount[T domain.CatalogEntity](lines []domain.LineItem[T]) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

// ShippingFee is the price of the selected option, or zero when none is selected.
func ShippingFee(selected *domain.ShippingOption) decimal.Decimal {
	if selected == nil {
		return decimal.Zero
	}
	return domain.RoundMoney(selected.Price)
}

// GrandTotal adds vouchers as purchasable items, not discounts.
func GrandTotal(productSubtotal, voucherSubtotal decimal.Decimal, selected *domain.ShippingOption) decimal.Decimal {
	return domain.RoundMoney(productSubtotal.Add(voucherSubtotal).Add(ShippingFee(selected)))
}

// InvoiceValue is the declared value for freight quotes: products only.
func InvoiceValue(products []domain.ProductLine) decimal.Decimal {
	return Subtotal(products)
}

// Installment splits total into n payments rounded to cents.
func Installment(total decimal.Decimal, n int) decimal.Decimal {
	if n < 1 {
		n = 1
	}
	return total.DivRound(decimal.NewFromInt(int64(n)), domain.MoneyPlaces)
}

type Summary struct {
	ProductSubtotal decimal.Decimal `json:"product_subtotal"`
	VoucherSubtotal decimal.Decimal `json:"voucher_subtotal"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	ItemCount       int             `json:"item_count"`
}

func Summarize(state domain.CartState, selected *domain.ShippingOption) Summary {
	products := Subtotal(state.ProductLines)
	vouchers := Subtotal(state.VoucherLines)
	return Summary{
		ProductSubtotal: products,
		VoucherSubtotal: vouchers,
		ShippingFee:     ShippingFee(selected),
		GrandTotal:      GrandTotal(products, vouchers, selected),
		ItemCount:       ItemCount(state.ProductLines) + ItemCount(state.VoucherLines),
	}
}
