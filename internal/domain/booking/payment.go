package booking

import (
	"regexp"
	"strings"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/apperr"
)

const (
	MethodCreditCard   = "credit-card"
	MethodPayPal       = "paypal"
	MethodBankTransfer = "bank-transfer"
	MethodCash         = "cash"
)

var paymentMethods = map[string]bool{
	MethodCreditCard: true, MethodPayPal: true, MethodBankTransfer: true, MethodCash: true,
}

const (
	MsgPaymentSuccess = "Payment successful! Your appointment is confirmed."
	MsgCashSelected   = "You have selected to pay in cash during your appointment."
)

var (
	ErrInvalidMethod  = apperr.Invalid("Invalid payment method.")
	ErrPaymentDetails = apperr.Invalid("Payment details are required!")
	ErrCardNumber     = apperr.Invalid("Card number must be 16 digits!")
	ErrCVV            = apperr.Invalid("CVV must be 3 digits!")
	ErrExpiry         = apperr.Invalid("Expiry date must be in MM/YY format!")
)

var (
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3}$`)
)

// normalize trims card fields and defaults an empty method to cash.
func (p *PaymentForm) normalize() {
	p.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
	if p.PaymentMethod == "" {
		p.PaymentMethod = MethodCash
	}
	p.CardNumber = strings.TrimSpace(p.CardNumber)
	p.Expiry = strings.TrimSpace(p.Expiry)
	p.CVV = strings.TrimSpace(p.CVV)
}

// ValidatePayment checks the payment form. Cash skips every card check;
// otherwise presence, card number, CVV and expiry are checked in that order.
func ValidatePayment(p *PaymentForm) error {
	p.normalize()
	if !paymentMethods[p.PaymentMethod] {
		return ErrInvalidMethod
	}
	if p.PaymentMethod == MethodCash {
		return nil
	}
	if p.CardNumber == "" || p.Expiry == "" || p.CVV == "" {
		return ErrPaymentDetails
	}
	if !cardNumberPattern.MatchString(p.CardNumber) {
		return ErrCardNumber
	}
	if !cvvPattern.MatchString(p.CVV) {
		return ErrCVV
	}
	if !expiryPattern.MatchString(p.Expiry) {
		return ErrExpiry
	}
	return nil
}

// IsPaid reports whether method is settled before the visit.
func IsPaid(method string) bool {
	return method != MethodCash
}
