package stripe

import (
	"strings"

	"yoga-studio/internal/domain/billing"
)

// NormalizeIntentStatus maps a PaymentIntent status onto a payment status.
func NormalizeIntentStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "succeeded":
		return billing.StatusCompleted
	case "canceled", "requires_payment_method":
		return billing.StatusFailed
	default:
		return billing.StatusPending
	}
}
