package service

import (
	"github.com/griga-events/ticketing/internal/domain"
)

// TicketReader is the read side of the ticket store.
type TicketReader interface {
	List(limit int) []domain.Ticket
}

// TicketQuery narrows the admin listing.
type TicketQuery struct {
	Limit  int
	Search string
}

// AdminTicketService serves the capped, most-recent-first ticket listing.
type AdminTicketService struct {
	tickets  TicketReader
	maxLimit int
}

// NewAdminTicketService builds the service. maxLimit caps every listing.
func NewAdminTicketService(tickets TicketReader, maxLimit int) *AdminTicketService {
	return &AdminTicketService{tickets: tickets, maxLimit: maxLimit}
}

// List returns matching tickets, most recent first.
func (s *AdminTicketService) List(query TicketQuery) []domain.Ticket {
	limit := s.maxLimit
	if query.Limit > 0 && (limit <= 0 || query.Limit < limit) {
		limit = query.Limit
	}

	if query.Search == "" {
		return s.tickets.List(limit)
	}

	all := s.tickets.List(0)
	out := make([]domain.Ticket, 0, min(len(all), max(limit, 0)))
	for _, t := range all {
		if !t.Matches(query.Search) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
