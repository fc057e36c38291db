package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/griga-events/ticketing/internal/domain"
	"github.com/griga-events/ticketing/internal/store"
)

// The whole ticket log lives in a single row.
const snapshotRowID = 1

// TicketSnapshotRepository mirrors the ticket log into Postgres as one JSONB document.
type TicketSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewTicketSnapshotRepository instantiates repository.
func NewTicketSnapshotRepository(pool *pgxpool.Pool) *TicketSnapshotRepository {
	return &TicketSnapshotRepository{pool: pool}
}

var _ store.Mirror = (*TicketSnapshotRepository)(nil)

// Load returns the stored snapshot, or nil when none has been written yet.
func (r *TicketSnapshotRepository) Load(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT payload FROM ticket_snapshots WHERE id = $1`

	var payload []byte
	if err := r.pool.QueryRow(ctx, query, snapshotRowID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select ticket snapshot: %w", err)
	}

	var tickets []domain.Ticket
	if err := json.Unmarshal(payload, &tickets); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrCorruptSnapshot, err)
	}
	return tickets, nil
}

// Save upserts the full snapshot.
func (r *TicketSnapshotRepository) Save(ctx context.Context, tickets []domain.Ticket) error {
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	payload, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("encode ticket snapshot: %w", err)
	}

	const query = `
        INSERT INTO ticket_snapshots (id, payload, ticket_count, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (id) DO UPDATE
            SET payload = EXCLUDED.payload, ticket_count = EXCLUDED.ticket_count, updated_at = NOW()`
	if _, err := r.pool.Exec(ctx, query, snapshotRowID, string(payload), len(tickets)); err != nil {
		return fmt.Errorf("upsert ticket snapshot: %w", err)
	}
	return nil
}
