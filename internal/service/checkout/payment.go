package checkout

import (
	"regexp"
	"strings"

	"farmsmart/internal/domain"
)

const (
	msgHolder = "Cardholder name is required"
	msgCard   = "Enter a valid 16-digit card number"
	msgExpiry = "Enter a valid expiry date (MM/YY)"
	msgCVV    = "Enter a valid CVV (3-4 digits)"
)

var (
	nonDigit = regexp.MustCompile(`\D`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvRe    = regexp.MustCompile(`^\d{3,4}$`)
)

// Validate checks the payment form field by field. Keys match the JSON names
// of domain.PaymentDetails.
func Validate(d domain.PaymentDetails) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(d.HolderName) == "" {
		errs["holderName"] = msgHolder
	}
	if len(digits(d.CardNumber)) != 16 {
		errs["cardNumber"] = msgCard
	}
	if !expiryRe.MatchString(strings.TrimSpace(d.Expiry)) {
		errs["expiry"] = msgExpiry
	}
	if !cvvRe.MatchString(strings.TrimSpace(d.CVV)) {
		errs["cvv"] = msgCVV
	}
	return errs
}

// Redact keeps only the last four card digits and masks the CVV.
func Redact(d domain.PaymentDetails) domain.PaymentMethod {
	num := digits(d.CardNumber)
	if len(num) > 4 {
		num = num[len(num)-4:]
	}
	return domain.PaymentMethod{
		CardHolderName: strings.TrimSpace(d.HolderName),
		CardNumber:     strings.Repeat("*", 16-len(num)) + num,
		ExpiryDate:     strings.TrimSpace(d.Expiry),
		CVV:            "***",
	}
}

func digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}
