package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedStore deduplicates webhook deliveries. Meta retries a WhatsApp
// message until it gets a 200, so the same wamid can arrive more than once;
// MarkProcessed claims it and reports true only to the first delivery.
type ProcessedStore interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresProcessedStore claims wamids in processed_events, keyed by
// (provider, event_id). Used when Redis is not configured.
type PostgresProcessedStore struct {
	db execer
}

func NewPostgresProcessedStore(pool *pgxpool.Pool) *PostgresProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &PostgresProcessedStore{db: pool}
}

func newPostgresProcessedStoreWithExec(db execer) *PostgresProcessedStore {
	if db == nil {
		panic("events: exec required")
	}
	return &PostgresProcessedStore{db: db}
}

// MarkProcessed inserts the wamid; a conflicting row means a redelivery.
func (s *PostgresProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
