package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Placeholders used when the payment event omits attendee details.
const (
	DefaultAttendeeName  = "Murima Guest"
	DefaultAttendeePhone = "N/A"
)

// Ticket is an issued entry ticket. Records are immutable once created.
type Ticket struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Method    PaymentMethod `json:"method"`
	Timestamp time.Time     `json:"timestamp"`
	QR        string        `json:"qr"`
	EventID   string        `json:"eventId,omitempty"`
}

type qrPayload struct {
	TicketID string `json:"ticketId"`
	Event    string `json:"event"`
	Email    string `json:"email"`
}

// QRPayload returns the string encoded into a ticket's QR code. It is derived only
// from the ticket id, the event name and the attendee email, so a stored record can
// be checked against a regenerated ticket.
func QRPayload(ticketID, eventName, email string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding three strings cannot fail.
	_ = enc.Encode(qrPayload{TicketID: ticketID, Event: eventName, Email: email})
	return strings.TrimSuffix(buf.String(), "\n")
}

// Matches reports whether the ticket's id, name or email contains query, ignoring case.
func (t Ticket) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.ID), q) ||
		strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Email), q)
}
