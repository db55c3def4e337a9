package domain

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) IsKnown() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPix, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// DefaultTaxIDType is the national individual tax id kind sent with the payer.
const DefaultTaxIDType = "CPF"

// PaymentDraft accumulates the payment form as the user fills it in.
type PaymentDraft struct {
	Method       PaymentMethod `json:"method,omitempty"`
	Installments int           `json:"installments"`
	PayerEmail   string        `json:"payer_email"`
	PayerTaxID   string        `json:"payer_tax_id"`
	TaxIDType    string        `json:"payer_tax_id_type,omitempty"`
}

func NewPaymentDraft() PaymentDraft {
	return PaymentDraft{Installments: 1, TaxIDType: DefaultTaxIDType}
}
