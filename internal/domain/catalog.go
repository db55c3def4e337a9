package domain

import "github.com/shopspring/decimal"

// CatalogEntity is anything the cart can hold a line for.
type CatalogEntity interface {
	CatalogID() int64
	CatalogPrice() decimal.Decimal
}

type Product struct {
	ID          int64           `json:"product_id"`
	Name        string          `json:"product_name"`
	Description string          `json:"product_description,omitempty"`
	Price       decimal.Decimal `json:"product_price"`
	Category    string          `json:"category,omitempty"`
	Images      []string        `json:"images,omitempty"`
}

func (p Product) CatalogID() int64              { return p.ID }
func (p Product) CatalogPrice() decimal.Decimal { return p.Price }

type Partner struct {
	ID   int64  `json:"partner_id,omitempty"`
	Name string `json:"partner_name"`
}

type Voucher struct {
	ID          int64           `json:"voucher_id"`
	Name        string          `json:"voucher_name"`
	Description string          `json:"voucher_description,omitempty"`
	Price       decimal.Decimal `json:"voucher_price"`
	Partner     *Partner        `json:"partner,omitempty"`
	ValidUntil  string          `json:"voucher_validity,omitempty"`
	Images      []string        `json:"images,omitempty"`
}

func (v Voucher) CatalogID() int64              { return v.ID }
func (v Voucher) CatalogPrice() decimal.Decimal { return v.Price }
