package appointments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLedger keeps a durable copy of appointment requests in appointment_requests.
type PostgresLedger struct {
	db execer
}

// NewPostgresLedger creates a ledger backed by a pgx pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresLedger{db: pool}
}

// NewPostgresLedgerWithExecer allows injecting mocks for tests.
func NewPostgresLedgerWithExecer(db execer) *PostgresLedger {
	if db == nil {
		panic("appointments: execer required")
	}
	return &PostgresLedger{db: db}
}

const insertAppointmentRequest = `
INSERT INTO appointment_requests (id, sender_id, name, reason, requested_at)
VALUES ($1, $2, $3, $4, $5)`

func (l *PostgresLedger) Export(ctx context.Context, rec Record) error {
	_, err := l.db.Exec(ctx, insertAppointmentRequest,
		uuid.New(),
		rec.SenderID,
		rec.Name,
		rec.Reason,
		rec.RequestedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appointments: insert request: %w", err)
	}
	return nil
}
