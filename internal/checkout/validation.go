package checkout

import (
	"regexp"

	"github.com/fjod/storefront/internal/domain"
)

const MaxInstallments = 12

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	// shape only, the check digits are not verified
	taxIDPattern = regexp.MustCompile(`^\d{11}$`)
)

// ValidatePayment runs the payment-data gate and returns the first failure
// as a *ValidationError.
func ValidatePayment(d domain.PaymentDraft) error {
	if d.PayerEmail == "" {
		return invalid("payer_email", "is required")
	}
	if !emailPattern.MatchString(d.PayerEmail) {
		return invalid("payer_email", "is not a valid email address")
	}
	if d.PayerTaxID == "" {
		return invalid("payer_tax_id", "is required")
	}
	if !taxIDPattern.MatchString(d.PayerTaxID) {
		return invalid("payer_tax_id", "must have exactly 11 digits")
	}
	if d.Installments < 1 || d.Installments > MaxInstallments {
		return invalid("installments", "must be between 1 and 12")
	}
	if d.Method != "" && !d.Method.IsKnown() {
		return invalid("method", "unknown payment method")
	}
	return nil
}

// normalizeDraft fills the defaults a form leaves empty.
func normalizeDraft(d domain.PaymentDraft) domain.PaymentDraft {
	if d.Installments == 0 {
		d.Installments = 1
	}
	if d.TaxIDType == "" {
		d.TaxIDType = domain.DefaultTaxIDType
	}
	return d
}
