package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/griga-events/ticketing/internal/domain"
)

// EventCheckoutSessionCompleted is the only provider event kind that issues a ticket.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// ErrWebhookNotConfigured means no signing secret is available.
var ErrWebhookNotConfigured = errors.New("stripe webhook secret is not configured")

// Event is a provider event whose signature has been verified.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Raw     json.RawMessage
}

// WebhookVerifier checks Stripe-Signature headers against the shared secret.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier builds a verifier for secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: strings.TrimSpace(secret)}
}

// Configured reports whether a secret is set.
func (v *WebhookVerifier) Configured() bool {
	return v.secret != ""
}

// Verify authenticates payload and decodes the event envelope.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (Event, error) {
	if !v.Configured() {
		return Event{}, ErrWebhookNotConfigured
	}
	if strings.TrimSpace(signature) == "" {
		return Event{}, errors.New("missing Stripe-Signature header")
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, err
	}

	created := time.Unix(evt.Created, 0).UTC()
	if evt.Created == 0 {
		created = time.Time{}
	}
	var raw json.RawMessage
	if evt.Data != nil {
		raw = evt.Data.Raw
	}
	return Event{ID: evt.ID, Type: string(evt.Type), Created: created, Raw: raw}, nil
}

// CheckoutSession is the subset of a Checkout Session object used to fill a ticket.
type CheckoutSession struct {
	ID                 string            `json:"id"`
	CustomerEmail      string            `json:"customer_email"`
	CustomerDetails    customerDetails   `json:"customer_details"`
	Metadata           map[string]string `json:"metadata"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	PaymentStatus      string            `json:"payment_status"`
}

type customerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DecodeCheckoutSession parses the event's data object.
func DecodeCheckoutSession(raw json.RawMessage) (CheckoutSession, error) {
	var session CheckoutSession
	if len(raw) == 0 {
		return session, errors.New("event has no data object")
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return session, fmt.Errorf("decode checkout.session: %w", err)
	}
	return session, nil
}

// AttendeeEmail prefers the email collected by checkout over the prefilled one.
func (s CheckoutSession) AttendeeEmail() string {
	return firstNonEmpty(s.CustomerDetails.Email, s.CustomerEmail)
}

// AttendeeName falls back to a placeholder.
func (s CheckoutSession) AttendeeName() string {
	name := firstNonEmpty(s.Metadata["name"], s.CustomerDetails.Name)
	if name == "" {
		return domain.DefaultAttendeeName
	}
	return name
}

// AttendeePhone falls back to a placeholder.
func (s CheckoutSession) AttendeePhone() string {
	phone := firstNonEmpty(s.Metadata["phone"], s.Metadata["contact"], s.CustomerDetails.Phone)
	if phone == "" {
		return domain.DefaultAttendeePhone
	}
	return phone
}

// PaymentMethod resolves the channel from metadata first, then the session's method types.
func (s CheckoutSession) PaymentMethod() domain.PaymentMethod {
	candidates := append([]string{s.Metadata["payment_method"], s.Metadata["method"]}, s.PaymentMethodTypes...)
	return domain.ResolvePaymentMethod(candidates...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
