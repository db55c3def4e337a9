package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

type PayerIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type Payer struct {
	Email          string              `json:"email"`
	Identification PayerIdentification `json:"identification"`
}

type CreatePaymentRequest struct {
	OrderID       int64  `json:"pedidoId"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Installments  int    `json:"installments"`
	Payer         Payer  `json:"payerData"`
}

type PaymentDetails struct {
	Status  string `json:"status"`
	OrderID int64  `json:"pedido_id"`
}

// PaymentSession is a hosted checkout created for an order.
type PaymentSession struct {
	PaymentID         ID              `json:"payment_id"`
	PreferenceID      string          `json:"preference_id"`
	InitPoint         string          `json:"init_point"`
	SandboxInitPoint  string          `json:"sandbox_init_point"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Payment           *PaymentDetails `json:"payment,omitempty"`
}

type PaymentStatus struct {
	PaymentID    ID     `json:"payment_id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail,omitempty"`
}

// CreatePaymentSession asks the backend for a hosted payment page for an
// existing order.
func (c *Client) CreatePaymentSession(ctx context.Context, req CreatePaymentRequest) (*PaymentSession, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create payment", http.MethodPost, "/payments", req, &raw); err != nil {
		return nil, err
	}
	return decodePaymentSession("create payment", raw)
}

func (c *Client) RetryPayment(ctx context.Context, paymentID string) (*PaymentSession, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "retry payment", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/retry", nil, &raw); err != nil {
		return nil, err
	}
	return decodePaymentSession("retry payment", raw)
}

func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var out PaymentStatus
	if err := c.do(ctx, "payment status", http.MethodGet, "/payments/"+url.PathEscape(paymentID)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelPayment(ctx context.Context, paymentID string) error {
	return c.do(ctx, "cancel payment", http.MethodPut, "/payments/"+url.PathEscape(paymentID)+"/cancel", nil, nil)
}

// decodePaymentSession accepts the session either at the top level or nested
// under "data". A session without any redirect URL is rejected.
func decodePaymentSession(op string, raw json.RawMessage) (*PaymentSession, error) {
	var envelope struct {
		Data *PaymentSession `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &RemoteError{Op: op, Message: "invalid response body", Err: err}
	}
	session := envelope.Data
	if session == nil {
		session = &PaymentSession{}
		if err := json.Unmarshal(raw, session); err != nil {
			return nil, &RemoteError{Op: op, Message: "invalid response body", Err: err}
		}
	}
	if session.InitPoint == "" && session.SandboxInitPoint == "" {
		return nil, &RemoteError{Op: op, Message: "payment response has no redirect url"}
	}
	return session, nil
}
