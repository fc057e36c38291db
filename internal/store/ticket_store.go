package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/griga-events/ticketing/internal/domain"
)

var (
	// ErrDuplicateID is returned when a ticket id is already present in the log.
	ErrDuplicateID = errors.New("ticket id already issued")
	// ErrMirrorWrite wraps snapshot failures; the in-memory append has already happened.
	ErrMirrorWrite = errors.New("ticket snapshot write failed")
	// ErrCorruptSnapshot marks a persisted snapshot that could not be decoded.
	ErrCorruptSnapshot = errors.New("corrupt ticket snapshot")
)

// Mirror persists full snapshots of the ticket log. Save always receives the whole
// list, most recent first.
type Mirror interface {
	Load(ctx context.Context) ([]domain.Ticket, error)
	Save(ctx context.Context, tickets []domain.Ticket) error
}

// TicketStore is a bounded, most-recent-first log of issued tickets. When the cap is
// exceeded the oldest entries are dropped.
type TicketStore struct {
	// saveMu serializes appends so snapshots reach the mirror in order; mu only
	// guards the slice, so readers never wait on mirror I/O.
	saveMu  sync.Mutex
	mu      sync.RWMutex
	tickets []domain.Ticket
	limit   int
	mirror  Mirror
	logger  *zap.Logger
}

// NewTicketStore builds an empty store. mirror may be nil for a memory-only log.
func NewTicketStore(limit int, mirror Mirror, logger *zap.Logger) *TicketStore {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketStore{limit: limit, mirror: mirror, logger: logger}
}

// Load replaces the in-memory state with the mirror's snapshot. A missing or corrupt
// snapshot leaves the store empty; only I/O failures are returned.
func (s *TicketStore) Load(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}

	tickets, err := s.mirror.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrCorruptSnapshot) {
			s.logger.Warn("ignoring corrupt ticket snapshot", zap.Error(err))
			tickets = nil
		} else {
			return fmt.Errorf("load ticket snapshot: %w", err)
		}
	}

	if len(tickets) > s.limit {
		tickets = tickets[:s.limit]
	}

	s.mu.Lock()
	s.tickets = append([]domain.Ticket(nil), tickets...)
	s.mu.Unlock()

	s.logger.Info("ticket store loaded", zap.Int("tickets", len(tickets)), zap.Int("limit", s.limit))
	return nil
}

// Append inserts ticket at the head, evicts beyond the cap and rewrites the snapshot.
func (s *TicketStore) Append(ctx context.Context, ticket domain.Ticket) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	for i := range s.tickets {
		if s.tickets[i].ID == ticket.ID {
			s.mu.Unlock()
			return ErrDuplicateID
		}
	}

	next := make([]domain.Ticket, 0, min(len(s.tickets)+1, s.limit))
	next = append(next, ticket)
	next = append(next, s.tickets...)
	if len(next) > s.limit {
		evicted := len(next) - s.limit
		next = next[:s.limit]
		s.logger.Debug("evicted tickets", zap.Int("count", evicted))
	}
	s.tickets = next
	s.mu.Unlock()

	if s.mirror == nil {
		return nil
	}
	// Slices are replaced, never mutated in place, so next is a stable snapshot.
	if err := s.mirror.Save(ctx, next); err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorWrite, err)
	}
	return nil
}

// List returns up to limit tickets, most recent first. limit <= 0 returns all.
func (s *TicketStore) List(limit int) []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.tickets)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Ticket, n)
	copy(out, s.tickets[:n])
	return out
}

// Has reports whether a ticket with id is present.
func (s *TicketStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of stored tickets.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}

// Cap returns the maximum number of retained tickets.
func (s *TicketStore) Cap() int {
	return s.limit
}
