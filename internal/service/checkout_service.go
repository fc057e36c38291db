package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/griga-events/ticketing/internal/payments"
)

var (
	ErrCheckoutNotConfigured = errors.New("checkout is not configured")
	ErrInvalidCheckout       = errors.New("invalid checkout request")
	ErrCheckoutFailed        = errors.New("checkout session could not be created")
)

// CheckoutCreator opens hosted payment pages.
type CheckoutCreator interface {
	Configured() bool
	CreateSession(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutResult, error)
}

// CheckoutService validates attendee details and opens a hosted checkout.
type CheckoutService struct {
	creator CheckoutCreator
	logger  *zap.Logger
}

// NewCheckoutService creates the service.
func NewCheckoutService(creator CheckoutCreator, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{creator: creator, logger: logger}
}

// StartCheckout returns the hosted page the attendee should be redirected to.
func (s *CheckoutService) StartCheckout(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutResult, error) {
	if s.creator == nil || !s.creator.Configured() {
		return payments.CheckoutResult{}, ErrCheckoutNotConfigured
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return payments.CheckoutResult{}, fmt.Errorf("%w: email is invalid", ErrInvalidCheckout)
	}
	req.Email = addr.Address

	res, err := s.creator.CreateSession(ctx, req)
	if err != nil {
		s.logger.Error("create checkout session", zap.String("email", req.Email), zap.Error(err))
		return payments.CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}
	s.logger.Info("checkout session created", zap.String("session_id", res.ID))
	return res, nil
}
