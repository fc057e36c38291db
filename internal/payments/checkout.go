package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/griga-events/ticketing/internal/config"
)

// ErrCheckoutNotConfigured means the secret key or redirect URLs are missing.
var ErrCheckoutNotConfigured = errors.New("stripe checkout is not configured")

// CheckoutRequest carries attendee details collected by the ticket form.
type CheckoutRequest struct {
	Name   string
	Email  string
	Phone  string
	Method string
}

// CheckoutResult identifies the hosted payment page.
type CheckoutResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutClient creates hosted Checkout Sessions for one ticket.
type CheckoutClient struct {
	api   *client.API
	cfg   config.StripeConfig
	event config.EventConfig
}

// NewCheckoutClient builds a client talking to the live Stripe API.
func NewCheckoutClient(cfg config.StripeConfig, event config.EventConfig) *CheckoutClient {
	return NewCheckoutClientWithBackends(cfg, event, nil)
}

// NewCheckoutClientWithBackends lets callers point the client at another backend.
func NewCheckoutClientWithBackends(cfg config.StripeConfig, event config.EventConfig, backends *stripe.Backends) *CheckoutClient {
	c := &CheckoutClient{cfg: cfg, event: event}
	if cfg.SecretKey != "" {
		c.api = client.New(cfg.SecretKey, backends)
	}
	return c
}

// Configured reports whether sessions can be created.
func (c *CheckoutClient) Configured() bool {
	return c.api != nil && c.cfg.Configured()
}

// CreateSession opens a payment-mode session for a single ticket. Attendee details ride
// along as metadata and come back in the checkout.session.completed webhook.
func (c *CheckoutClient) CreateSession(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if !c.Configured() {
		return CheckoutResult{}, ErrCheckoutNotConfigured
	}

	amount, err := MinorUnits(c.event.Price)
	if err != nil {
		return CheckoutResult{}, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(c.event.Name),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	if req.Name != "" {
		params.AddMetadata("name", req.Name)
	}
	if req.Phone != "" {
		params.AddMetadata("phone", req.Phone)
	}
	if req.Method != "" {
		params.AddMetadata("payment_method", req.Method)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutResult{ID: session.ID, URL: session.URL}, nil
}

// MinorUnits converts a decimal price such as "150" or "149.50" to cents.
func MinorUnits(price string) (int64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, fmt.Errorf("invalid event price %q", price)
	}
	return int64(math.Round(value * 100)), nil
}
