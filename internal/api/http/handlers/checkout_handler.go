package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/griga-events/ticketing/internal/api/dto"
	"github.com/griga-events/ticketing/internal/payments"
	"github.com/griga-events/ticketing/internal/service"
	apperrors "github.com/griga-events/ticketing/pkg/util/errorutil"
)

// CheckoutHandler starts hosted payments for the ticket form.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler constructs handler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Create handles POST /checkout/session.
func (h *CheckoutHandler) Create(c *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", map[string]any{"field": "email"})
	}

	res, err := h.checkout.StartCheckout(c.UserContext(), payments.CheckoutRequest{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Method: req.Method,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrCheckoutNotConfigured):
		return apperrors.NewConfigError("checkout is not configured")
	case errors.Is(err, service.ErrInvalidCheckout):
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "email"})
	case errors.Is(err, service.ErrCheckoutFailed):
		return apperrors.NewUpstreamError("UPSTREAM_FAILED", "checkout session could not be created", err)
	default:
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.CheckoutResponse{ID: res.ID, URL: res.URL})
}
