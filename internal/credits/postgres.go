package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tryon-server/internal/domain"
)

// pgxConn is the slice of the pgx pool surface the ledger needs, kept small
// so tests can stub it.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlEnsureCreditsTable = `
CREATE TABLE IF NOT EXISTS user_credits (
    user_id    TEXT PRIMARY KEY,
    credits    INT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	// The no-op conflict update makes the statement return the existing row,
	// so seeding and reading are one round trip.
	sqlSeedAndReadCredits = `
INSERT INTO user_credits AS uc (user_id, credits)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET credits = uc.credits
RETURNING credits`

	sqlDeductCredit = `
UPDATE user_credits
SET credits = credits - 1, updated_at = now()
WHERE user_id = $1 AND credits > 0
RETURNING credits`
)

// PostgresLedger keeps the counter in Postgres with a single-statement
// conditional decrement, closing the read-modify-write race the metadata
// store cannot.
type PostgresLedger struct {
	db       pgxConn
	starting int
}

// NewPostgresLedger ensures the backing table exists and returns the ledger.
func NewPostgresLedger(ctx context.Context, db pgxConn, starting int) (*PostgresLedger, error) {
	if starting <= 0 {
		starting = DefaultStartingBalance
	}
	if _, err := db.Exec(ctx, sqlEnsureCreditsTable); err != nil {
		return nil, fmt.Errorf("credits: ensure table: %w", err)
	}
	return &PostgresLedger{db: db, starting: starting}, nil
}

// Balance reads the current count, seeding the starting balance on first
// touch.
func (l *PostgresLedger) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := l.db.QueryRow(ctx, sqlSeedAndReadCredits, userID, l.starting).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("%w: credit balance: %v", domain.ErrProviderFailure, err)
	}
	if balance < 0 {
		return 0, nil
	}
	return balance, nil
}

// Deduct atomically charges one credit. A zero balance (or a concurrent
// request that drained it first) surfaces as domain.ErrCreditsExhausted.
func (l *PostgresLedger) Deduct(ctx context.Context, userID string) (int, error) {
	if _, err := l.Balance(ctx, userID); err != nil {
		return 0, err
	}
	var remaining int
	err := l.db.QueryRow(ctx, sqlDeductCredit, userID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrCreditsExhausted
	}
	if err != nil {
		return 0, fmt.Errorf("%w: credit deduct: %v", domain.ErrProviderFailure, err)
	}
	return remaining, nil
}

var _ Ledger = (*PostgresLedger)(nil)
