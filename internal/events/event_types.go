package events

import (
	"time"

	"github.com/griga-events/ticketing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIssued     EventType = "ticket_issued"
	EventWebhookIgnored   EventType = "webhook_ignored"
	EventWebhookDuplicate EventType = "webhook_duplicate"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketIssuedPayload payload.
type TicketIssuedPayload struct {
	ProviderEventID string               `json:"provider_event_id"`
	Email           string               `json:"email"`
	Method          domain.PaymentMethod `json:"method"`
}

// WebhookPayload describes a provider event that did not issue a ticket.
type WebhookPayload struct {
	ProviderEventID string `json:"provider_event_id"`
	ProviderType    string `json:"provider_type"`
	Reason          string `json:"reason,omitempty"`
}
