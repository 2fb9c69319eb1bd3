// Package credits manages the per-user generation quota. The counter lives
// in an external store; this package owns all reads and writes to it.
package credits

import "context"

// DefaultStartingBalance is granted to users whose record carries no credit
// value yet.
const DefaultStartingBalance = 3

// Ledger is the credit counter contract. Deduct charges exactly one credit
// and returns the new balance; implementations are as atomic as their store
// allows and return domain.ErrCreditsExhausted at the floor.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Deduct(ctx context.Context, userID string) (int, error)
}
