package stripe

import "strings"

const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
	PaymentNone   = "none"
)

// NormalizePaymentStatus folds checkout payment statuses into paid|unpaid|none.
// A session that required no payment (100% discount) counts as paid.
func NormalizePaymentStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "paid", "no_payment_required":
		return PaymentPaid
	case "unpaid":
		return PaymentUnpaid
	case "":
		return PaymentNone
	default:
		return strings.TrimSpace(s)
	}
}
