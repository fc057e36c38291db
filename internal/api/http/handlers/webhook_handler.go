package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/griga-events/ticketing/internal/api/dto"
	"github.com/griga-events/ticketing/internal/service"
	apperrors "github.com/griga-events/ticketing/pkg/util/errorutil"
)

// HeaderStripeSignature carries the provider's payload signature.
const HeaderStripeSignature = "Stripe-Signature"

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	issuer *service.IssueService
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(issuer *service.IssueService) *WebhookHandler {
	return &WebhookHandler{issuer: issuer}
}

// Handle handles POST /stripe/webhook. The raw body is verified as received.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	// fiber reuses the body buffer once the handler returns.
	payload := append([]byte(nil), c.Body()...)

	out, err := h.issuer.HandleWebhook(c.UserContext(), payload, c.Get(HeaderStripeSignature))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrWebhookNotConfigured):
		return apperrors.NewConfigError("webhook secret is not configured")
	case errors.Is(err, service.ErrInvalidSignature):
		return apperrors.NewInvalidSignature(err)
	case errors.Is(err, service.ErrNotificationFailed):
		return apperrors.NewUpstreamError("NOTIFICATION_FAILED", "ticket email could not be sent", err)
	default:
		return apperrors.NewInternalError(err)
	}

	ack := dto.WebhookAck{Received: true, Duplicate: out.Duplicate}
	if out.Ticket != nil {
		ack.TicketID = out.Ticket.ID
	}
	return c.JSON(ack)
}
