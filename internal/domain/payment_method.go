package domain

import "strings"

// PaymentMethod is the normalized label of the channel a ticket was paid through.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "Stripe"
	PaymentMethodMPesa  PaymentMethod = "M-Pesa"
)

// DefaultPaymentMethod is used when the provider reports an unknown channel.
const DefaultPaymentMethod = PaymentMethodStripe

var paymentMethodAliases = map[string]PaymentMethod{
	"stripe":     PaymentMethodStripe,
	"card":       PaymentMethodStripe,
	"link":       PaymentMethodStripe,
	"apple_pay":  PaymentMethodStripe,
	"google_pay": PaymentMethodStripe,
	"mpesa":      PaymentMethodMPesa,
	"m-pesa":     PaymentMethodMPesa,
	"m_pesa":     PaymentMethodMPesa,
}

// ResolvePaymentMethod maps raw provider values to a PaymentMethod. The first
// recognized candidate wins; when none is recognized the default is returned.
func ResolvePaymentMethod(candidates ...string) PaymentMethod {
	for _, raw := range candidates {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if method, ok := paymentMethodAliases[key]; ok {
			return method
		}
	}
	return DefaultPaymentMethod
}
