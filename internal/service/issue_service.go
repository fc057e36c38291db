package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/griga-events/ticketing/internal/clock"
	"github.com/griga-events/ticketing/internal/domain"
	"github.com/griga-events/ticketing/internal/events"
	"github.com/griga-events/ticketing/internal/notify"
	"github.com/griga-events/ticketing/internal/payments"
	"github.com/griga-events/ticketing/internal/store"
)

var (
	ErrWebhookNotConfigured = errors.New("webhook verification is not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrNotificationFailed   = errors.New("ticket notification failed")
)

const (
	// idAttempts bounds regeneration when a fresh id collides with a stored one.
	idAttempts     = 5
	releaseTimeout = 5 * time.Second
)

// EventVerifier authenticates raw provider deliveries.
type EventVerifier interface {
	Configured() bool
	Verify(payload []byte, signature string) (payments.Event, error)
}

// TicketNotifier delivers an issued ticket to the attendee.
type TicketNotifier interface {
	SendTicket(ctx context.Context, email notify.TicketEmail) error
}

// TicketLog is the write side of the ticket store.
type TicketLog interface {
	Append(ctx context.Context, ticket domain.Ticket) error
	Has(id string) bool
}

// WebhookEventLedger remembers provider event ids that already issued a ticket.
type WebhookEventLedger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// IssueOutcome reports what a webhook delivery did.
type IssueOutcome struct {
	Ticket    *domain.Ticket
	Ignored   bool
	Duplicate bool
}

// IssueService turns confirmed payments into emailed, recorded tickets.
type IssueService struct {
	verifier   EventVerifier
	notifier   TicketNotifier
	tickets    TicketLog
	ledger     WebhookEventLedger
	ids        *TicketIDGenerator
	clock      clock.Clock
	dispatcher events.Dispatcher
	eventName  string
	logger     *zap.Logger
}

// IssueDependencies bundles collaborators for the issue service. Ledger and
// Dispatcher are optional.
type IssueDependencies struct {
	Verifier   EventVerifier
	Notifier   TicketNotifier
	Tickets    TicketLog
	Ledger     WebhookEventLedger
	IDs        *TicketIDGenerator
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	EventName  string
	Logger     *zap.Logger
}

// NewIssueService builds the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	ids := deps.IDs
	if ids == nil {
		ids = NewTicketIDGenerator(clk)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		verifier:   deps.Verifier,
		notifier:   deps.Notifier,
		tickets:    deps.Tickets,
		ledger:     deps.Ledger,
		ids:        ids,
		clock:      clk,
		dispatcher: deps.Dispatcher,
		eventName:  deps.EventName,
		logger:     logger,
	}
}

// HandleWebhook verifies a provider delivery and, for completed checkouts, emails
// and records a ticket. Nothing is recorded unless the email was sent.
func (s *IssueService) HandleWebhook(ctx context.Context, payload []byte, signature string) (IssueOutcome, error) {
	if s.verifier == nil || !s.verifier.Configured() {
		return IssueOutcome{}, ErrWebhookNotConfigured
	}

	evt, err := s.verifier.Verify(payload, signature)
	if err != nil {
		return IssueOutcome{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if evt.Type != payments.EventCheckoutSessionCompleted {
		s.publish(ctx, events.EventWebhookIgnored, "", events.WebhookPayload{ProviderEventID: evt.ID, ProviderType: evt.Type})
		return IssueOutcome{Ignored: true}, nil
	}

	// A verified event that cannot yield a ticket is acknowledged: redelivery would not fix it.
	session, err := payments.DecodeCheckoutSession(evt.Raw)
	if err != nil {
		return s.ignore(ctx, evt, "undecodable checkout session", zap.Error(err)), nil
	}
	email := session.AttendeeEmail()
	if email == "" {
		return s.ignore(ctx, evt, "checkout session has no attendee email", zap.String("session_id", session.ID)), nil
	}

	if !s.claim(ctx, evt.ID) {
		s.publish(ctx, events.EventWebhookDuplicate, "", events.WebhookPayload{ProviderEventID: evt.ID, ProviderType: evt.Type})
		return IssueOutcome{Duplicate: true}, nil
	}

	ticket := domain.Ticket{
		ID:        s.nextID(),
		Name:      session.AttendeeName(),
		Email:     email,
		Phone:     session.AttendeePhone(),
		Method:    session.PaymentMethod(),
		Timestamp: evt.Created,
		EventID:   evt.ID,
	}
	if ticket.Timestamp.IsZero() {
		ticket.Timestamp = s.clock.Now()
	}
	ticket.QR = domain.QRPayload(ticket.ID, s.eventName, ticket.Email)

	if err := s.notifier.SendTicket(ctx, notify.TicketEmail{
		To:        ticket.Email,
		Name:      ticket.Name,
		TicketID:  ticket.ID,
		QRPayload: ticket.QR,
	}); err != nil {
		s.release(evt.ID)
		return IssueOutcome{}, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	if err := s.tickets.Append(ctx, ticket); err != nil {
		if !errors.Is(err, store.ErrMirrorWrite) {
			s.release(evt.ID)
			return IssueOutcome{}, fmt.Errorf("record ticket %s: %w", ticket.ID, err)
		}
		s.logger.Error("ticket kept in memory only", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publish(ctx, events.EventTicketIssued, ticket.ID, events.TicketIssuedPayload{
		ProviderEventID: evt.ID,
		Email:           ticket.Email,
		Method:          ticket.Method,
	})
	return IssueOutcome{Ticket: &ticket}, nil
}

func (s *IssueService) ignore(ctx context.Context, evt payments.Event, reason string, fields ...zap.Field) IssueOutcome {
	s.logger.Warn("payment event ignored", append([]zap.Field{
		zap.String("event_id", evt.ID),
		zap.String("reason", reason),
	}, fields...)...)
	s.publish(ctx, events.EventWebhookIgnored, "", events.WebhookPayload{ProviderEventID: evt.ID, ProviderType: evt.Type, Reason: reason})
	return IssueOutcome{Ignored: true}
}

func (s *IssueService) nextID() string {
	id := s.ids.Next()
	for i := 1; i < idAttempts && s.tickets.Has(id); i++ {
		id = s.ids.Next()
	}
	return id
}

// claim reports whether the event should be processed. Without a ledger, or when the
// ledger is unreachable, every event is processed.
func (s *IssueService) claim(ctx context.Context, eventID string) bool {
	if s.ledger == nil || strings.TrimSpace(eventID) == "" {
		return true
	}
	claimed, err := s.ledger.Claim(ctx, eventID)
	if err != nil {
		s.logger.Warn("webhook dedupe unavailable; processing event", zap.String("event_id", eventID), zap.Error(err))
		return true
	}
	return claimed
}

func (s *IssueService) release(eventID string) {
	if s.ledger == nil || eventID == "" {
		return
	}
	// Detached from the request: the claim must be dropped even after a timeout.
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.ledger.Release(ctx, eventID); err != nil {
		s.logger.Warn("release webhook event", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *IssueService) publish(ctx context.Context, eventType events.EventType, ticketID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("type", string(eventType)), zap.Error(err))
	}
}
