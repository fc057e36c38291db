package dto

// WebhookAck acknowledges a provider delivery.
type WebhookAck struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	TicketID  string `json:"ticketId,omitempty"`
}
