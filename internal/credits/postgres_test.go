package credits

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tryon-server/internal/domain"
)

type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("unexpected scan arity")
	}
	p, ok := dest[0].(*int)
	if !ok {
		return errors.New("unexpected scan target")
	}
	*p = r.value
	return nil
}

// fakeDB keys rows by the statement verb, which is enough to tell the seed
// read apart from the decrement.
type fakeDB struct {
	balance   fakeRow
	deduct    fakeRow
	execErr   error
	deductSQL string
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, db.execErr
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.HasPrefix(strings.TrimSpace(sql), "UPDATE") {
		db.deductSQL = sql
		return db.deduct
	}
	return db.balance
}

func TestPostgresLedgerEnsuresTable(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection refused")}
	if _, err := NewPostgresLedger(context.Background(), db, 3); err == nil {
		t.Fatalf("expected error when table creation fails")
	}
}

func TestPostgresBalanceSeedsStartingValue(t *testing.T) {
	db := &fakeDB{balance: fakeRow{value: 3}}
	ledger, err := NewPostgresLedger(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	balance, err := ledger.Balance(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("balance = %d, want 3", balance)
	}
}

func TestPostgresBalanceClampsNegative(t *testing.T) {
	db := &fakeDB{balance: fakeRow{value: -4}}
	ledger, err := NewPostgresLedger(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	balance, err := ledger.Balance(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestPostgresDeduct(t *testing.T) {
	db := &fakeDB{balance: fakeRow{value: 2}, deduct: fakeRow{value: 1}}
	ledger, err := NewPostgresLedger(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	remaining, err := ledger.Deduct(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
	if !strings.Contains(db.deductSQL, "credits > 0") {
		t.Fatalf("deduct statement must guard against zero balance: %q", db.deductSQL)
	}
}

func TestPostgresDeductExhausted(t *testing.T) {
	db := &fakeDB{balance: fakeRow{value: 0}, deduct: fakeRow{err: pgx.ErrNoRows}}
	ledger, err := NewPostgresLedger(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	_, err = ledger.Deduct(context.Background(), "user_1")
	if !errors.Is(err, domain.ErrCreditsExhausted) {
		t.Fatalf("err = %v, want ErrCreditsExhausted", err)
	}
}
