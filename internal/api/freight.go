package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/shipping"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type freightProduct struct {
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"product_quantity"`
	Price     json.Number `json:"product_price"`
}

type freightVoucher struct {
	VoucherID int64       `json:"voucher_id"`
	Quantity  int         `json:"voucher_quantity"`
	Price     json.Number `json:"voucher_price"`
}

type freightRequest struct {
	DestinationCEP string           `json:"destinationCEP"`
	InvoiceValue   json.Number      `json:"invoiceValue"`
	Products       []freightProduct `json:"products"`
	Vouchers       []freightVoucher `json:"vouchers"`
}

type freightService struct {
	ServiceCode        ID              `json:"ServiceCode"`
	ServiceDescription string          `json:"ServiceDescription"`
	Carrier            string          `json:"Carrier"`
	ShippingPrice      decimal.Decimal `json:"ShippingPrice"`
	DeliveryTime       days            `json:"DeliveryTime"`
	Error              json.RawMessage `json:"Error"`
}

type freightResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Quote   struct {
		Services []freightService `json:"services"`
	} `json:"quote"`
}

// Quote implements shipping.Quoter against POST /frete/calcular. Services
// reported with an error are dropped.
func (c *Client) Quote(ctx context.Context, req shipping.QuoteRequest) ([]domain.ShippingOption, error) {
	body := freightRequest{
		DestinationCEP: req.DestinationCEP,
		InvoiceValue:   number(req.InvoiceValue),
		Products:       make([]freightProduct, 0, len(req.Products)),
		Vouchers:       make([]freightVoucher, 0, len(req.Vouchers)),
	}
	for _, p := range req.Products {
		body.Products = append(body.Products, freightProduct{ProductID: p.ProductID, Quantity: p.Quantity, Price: number(p.Price)})
	}
	for _, v := range req.Vouchers {
		body.Vouchers = append(body.Vouchers, freightVoucher{VoucherID: v.VoucherID, Quantity: v.Quantity, Price: number(v.Price)})
	}

	var out freightResponse
	if err := c.do(ctx, "quote freight", http.MethodPost, "/frete/calcular", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "quote unsuccessful"
		}
		return nil, &RemoteError{Op: "quote freight", Message: msg}
	}

	options := make([]domain.ShippingOption, 0, len(out.Quote.Services))
	for _, s := range out.Quote.Services {
		if present(s.Error) {
			c.logger.Debug("freight service skipped",
				zap.String("service", s.ServiceCode.String()), zap.ByteString("error", s.Error))
			continue
		}
		options = append(options, domain.ShippingOption{
			CarrierCode:   s.ServiceCode.String(),
			Carrier:       s.Carrier,
			Description:   s.ServiceDescription,
			Price:         domain.RoundMoney(s.ShippingPrice),
			EstimatedDays: int(s.DeliveryTime),
		})
	}
	return options, nil
}

var _ shipping.Quoter = (*Client)(nil)
