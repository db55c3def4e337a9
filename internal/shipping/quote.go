// Package shipping builds freight quote requests from the cart and picks the
// default carrier from the returned options.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// PostalCodeLength is the digit count of a destination postal code (CEP).
const PostalCodeLength = 8

var (
	ErrNoAddress         = errors.New("no delivery address selected")
	ErrNoProducts        = errors.New("no products to ship")
	ErrInvalidPostalCode = errors.New("postal code must have 8 digits")
)

// Quoter asks the remote freight service for options. Options that came back
// with an error are not returned.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) ([]domain.ShippingOption, error)
}

type QuoteProduct struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"product_quantity"`
	Price     decimal.Decimal `json:"product_price"`
}

type QuoteVoucher struct {
	VoucherID int64           `json:"voucher_id"`
	Quantity  int             `json:"voucher_quantity"`
	Price     decimal.Decimal `json:"voucher_price"`
}

type QuoteRequest struct {
	DestinationCEP string          `json:"destinationCEP"`
	InvoiceValue   decimal.Decimal `json:"invoiceValue"`
	Products       []QuoteProduct  `json:"products"`
	Vouchers       []QuoteVoucher  `json:"vouchers"`
}

// NormalizePostalCode strips everything but digits, so "01310-100" becomes
// "01310100".
func NormalizePostalCode(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	if len(digits) != PostalCodeLength {
		return "", ErrInvalidPostalCode
	}
	return digits, nil
}

// BuildQuoteRequest maps the cart snapshot and address into a quote request.
// The declared invoice value counts products only.
func BuildQuoteRequest(state domain.CartState, addr *domain.Address) (QuoteRequest, error) {
	if addr == nil {
		return QuoteRequest{}, ErrNoAddress
	}
	if len(state.ProductLines) == 0 {
		return QuoteRequest{}, ErrNoProducts
	}
	cep, err := NormalizePostalCode(addr.PostalCode)
	if err != nil {
		return QuoteRequest{}, err
	}

	req := QuoteRequest{
		DestinationCEP: cep,
		InvoiceValue:   pricing.InvoiceValue(state.ProductLines),
		Products:       make([]QuoteProduct, 0, len(state.ProductLines)),
		Vouchers:       make([]QuoteVoucher, 0, len(state.VoucherLines)),
	}
	for _, l := range state.ProductLines {
		req.Products = append(req.Products, QuoteProduct{ProductID: l.ItemID, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	for _, l := range state.VoucherLines {
		req.Vouchers = append(req.Vouchers, QuoteVoucher{VoucherID: l.ItemID, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	return req, nil
}

// Fingerprint identifies a request by content. Two requests for the same
// destination and cart mix hash to the same value.
func Fingerprint(req QuoteRequest) uint64 {
	d := xxhash.New()
	fmt.Fprintf(d, "%s|%s", req.DestinationCEP, req.InvoiceValue.StringFixed(domain.MoneyPlaces))
	for _, p := range req.Products {
		fmt.Fprintf(d, "|p%d:%d:%s", p.ProductID, p.Quantity, p.Price.StringFixed(domain.MoneyPlaces))
	}
	for _, v := range req.Vouchers {
		fmt.Fprintf(d, "|v%d:%d:%s", v.VoucherID, v.Quantity, v.Price.StringFixed(domain.MoneyPlaces))
	}
	return d.Sum64()
}

// CheapestOption returns the lowest-priced option. Ties keep the first one.
func CheapestOption(options []domain.ShippingOption) (domain.ShippingOption, bool) {
	if len(options) == 0 {
		return domain.ShippingOption{}, false
	}
	best := options[0]
	for _, o := range options[1:] {
		if o.Price.LessThan(best.Price) {
			best = o
		}
	}
	return best, true
}
