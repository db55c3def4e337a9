package domain

import "github.com/shopspring/decimal"

type ShippingOption struct {
	CarrierCode   string          `json:"carrier_code"`
	Carrier       string          `json:"carrier,omitempty"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days"`
}
