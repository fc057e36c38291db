package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type migration struct {
	name string
	sql  string
}

// Statements are idempotent; they run in order on every start.
var migrations = []migration{
	{
		name: "001_ticket_snapshots",
		sql: `CREATE TABLE IF NOT EXISTS ticket_snapshots (
    id         SMALLINT PRIMARY KEY,
    payload    JSONB NOT NULL,
    ticket_count INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
}

// RunMigrations creates the tables used by the Postgres ticket snapshot.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	for _, m := range migrations {
		logger.Info("applying migration", zap.String("name", m.name))
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
