package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Status values a new order is created with.
const (
	OrderStatusPending   = "PENDENTE"
	PaymentStatusPending = "PENDING"
)

type OrderProduct struct {
	ProductID int64  `json:"produto_id"`
	Quantity  int    `json:"quantidade"`
	Note      string `json:"observacao"`
}

type OrderVoucher struct {
	VoucherID int64 `json:"voucher_id"`
	Quantity  int   `json:"quantidade"`
}

type CreateOrderRequest struct {
	AddressID   int64
	DeliveryFee decimal.Decimal
	Notes       string
	Products    []OrderProduct
	Vouchers    []OrderVoucher
	// IdempotencyKey is sent as a header so a retried submit does not
	// create a second order.
	IdempotencyKey string
}

type createOrderBody struct {
	AddressID      int64          `json:"endereco_id"`
	Status         string         `json:"status"`
	DeliveryStatus string         `json:"statusEntrega"`
	PaymentStatus  string         `json:"statusPagamento"`
	Notes          string         `json:"observacoes"`
	DeliveryFee    json.Number    `json:"taxa_entrega"`
	Products       []OrderProduct `json:"produtos"`
	Vouchers       []OrderVoucher `json:"vouchers"`
}

type CreateOrderResponse struct {
	OrderID int64 `json:"pedido_id"`
}

type OrderProductLine struct {
	Quantity int            `json:"pedido_product_quantity"`
	Product  domain.Product `json:"product"`
}

type OrderVoucherLine struct {
	Quantity int            `json:"pedido_voucher_quantity"`
	Voucher  domain.Voucher `json:"voucher"`
}

type Order struct {
	ID             int64              `json:"pedido_id"`
	Status         string             `json:"status"`
	DeliveryStatus string             `json:"statusEntrega"`
	PaymentStatus  string             `json:"statusPagamento"`
	Notes          string             `json:"observacoes"`
	DeliveryFee    decimal.Decimal    `json:"taxa_entrega"`
	CreatedAt      string             `json:"created_at"`
	Address        *domain.Address    `json:"endereco,omitempty"`
	Products       []OrderProductLine `json:"pedido_product"`
	Vouchers       []OrderVoucherLine `json:"pedido_voucher"`
}

// Total is products plus vouchers plus the delivery fee. A voucher line
// without a quantity counts once.
func (o Order) Total() decimal.Decimal {
	total := o.DeliveryFee
	for _, p := range o.Products {
		total = total.Add(p.Product.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	for _, v := range o.Vouchers {
		q := v.Quantity
		if q < 1 {
			q = 1
		}
		total = total.Add(v.Voucher.Price.Mul(decimal.NewFromInt(int64(q))))
	}
	return domain.RoundMoney(total)
}

// CreateOrder places a pending order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (int64, error) {
	body := createOrderBody{
		AddressID:      req.AddressID,
		Status:         OrderStatusPending,
		DeliveryStatus: OrderStatusPending,
		PaymentStatus:  PaymentStatusPending,
		Notes:          req.Notes,
		DeliveryFee:    number(req.DeliveryFee),
		Products:       nonNil(req.Products),
		Vouchers:       nonNil(req.Vouchers),
	}

	var out CreateOrderResponse
	err := c.do(ctx, "create order", http.MethodPost, "/pedidos", body, &out, idempotencyKey(req.IdempotencyKey))
	if err != nil {
		return 0, err
	}
	if out.OrderID == 0 {
		return 0, &RemoteError{Op: "create order", Message: "order id missing from response"}
	}
	return out.OrderID, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, "list orders", http.MethodGet, "/pedidos/usuario", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var out Order
	if err := c.do(ctx, "get order", http.MethodGet, idPath("/pedidos/%d", orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64, reason string) error {
	body := struct {
		Reason string `json:"motivo"`
	}{Reason: reason}
	return c.do(ctx, "cancel order", http.MethodPut, idPath("/pedidos/%d/cancel", orderID), body, nil)
}

// number renders an amount as a bare JSON number with two decimals.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(domain.MoneyPlaces))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
