package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"tryon-server/internal/domain"
	"tryon-server/internal/infra/clerk"
)

const metadataCreditsKey = "credits"

// ClerkLedger stores the balance under the user's public metadata in the
// identity provider. The store offers no conditional update, so the
// read-modify-write in Deduct can race with a concurrent request from the
// same user; the Postgres ledger exists for deployments that need the
// atomic variant.
type ClerkLedger struct {
	client   *clerk.Client
	starting int
}

// NewClerkLedger builds a ledger over the given Clerk client.
func NewClerkLedger(client *clerk.Client, starting int) *ClerkLedger {
	if starting <= 0 {
		starting = DefaultStartingBalance
	}
	return &ClerkLedger{client: client, starting: starting}
}

// Balance reads the current credit count, defaulting when the user record
// has no value yet. A negative stored value is reported as zero.
func (l *ClerkLedger) Balance(ctx context.Context, userID string) (int, error) {
	user, err := l.client.GetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	balance, ok := creditsFromMetadata(user.PublicMetadata)
	if !ok {
		return l.starting, nil
	}
	if balance < 0 {
		return 0, nil
	}
	return balance, nil
}

// Deduct charges one credit and persists the new balance.
func (l *ClerkLedger) Deduct(ctx context.Context, userID string) (int, error) {
	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if balance <= 0 {
		return 0, domain.ErrCreditsExhausted
	}
	remaining := balance - 1
	err = l.client.UpdateUserMetadata(ctx, userID, map[string]any{metadataCreditsKey: remaining})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return remaining, nil
}

// creditsFromMetadata tolerates the numeric shapes JSON metadata comes back
// in: float64 from generic decoding, json.Number, or a stringified integer.
func creditsFromMetadata(meta map[string]any) (int, bool) {
	raw, ok := meta[metadataCreditsKey]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

var _ Ledger = (*ClerkLedger)(nil)
