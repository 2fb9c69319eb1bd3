package credits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tryon-server/internal/domain"
	"tryon-server/internal/infra/clerk"
)

type clerkStub struct {
	metadata map[string]any
	patched  map[string]any
}

func newClerkStub(t *testing.T, metadata map[string]any) (*clerkStub, *clerk.Client) {
	t.Helper()
	stub := &clerkStub{metadata: metadata}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/user_1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":              "user_1",
				"public_metadata": stub.metadata,
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/users/user_1/metadata":
			var payload struct {
				PublicMetadata map[string]any `json:"public_metadata"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode metadata patch: %v", err)
			}
			stub.patched = payload.PublicMetadata
			json.NewEncoder(w).Encode(map[string]any{"id": "user_1"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := clerk.New(clerk.Options{BaseURL: srv.URL, SecretKey: "sk_test"})
	if err != nil {
		t.Fatalf("new clerk client: %v", err)
	}
	return stub, client
}

func TestClerkBalanceDefaultsWhenAbsent(t *testing.T) {
	_, client := newClerkStub(t, map[string]any{})
	ledger := NewClerkLedger(client, 3)

	balance, err := ledger.Balance(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("balance = %d, want 3", balance)
	}
}

func TestClerkBalanceReadsMetadataShapes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "float64", value: float64(7), want: 7},
		{name: "string", value: "5", want: 5},
		{name: "negative clamps to zero", value: float64(-2), want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newClerkStub(t, map[string]any{"credits": tc.value})
			ledger := NewClerkLedger(client, 3)
			balance, err := ledger.Balance(context.Background(), "user_1")
			if err != nil {
				t.Fatalf("balance: %v", err)
			}
			if balance != tc.want {
				t.Fatalf("balance = %d, want %d", balance, tc.want)
			}
		})
	}
}

func TestClerkDeductPersistsNewBalance(t *testing.T) {
	stub, client := newClerkStub(t, map[string]any{"credits": float64(2)})
	ledger := NewClerkLedger(client, 3)

	remaining, err := ledger.Deduct(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
	if stub.patched == nil {
		t.Fatalf("expected metadata patch")
	}
	if got, ok := stub.patched["credits"].(float64); !ok || int(got) != 1 {
		t.Fatalf("patched credits = %v, want 1", stub.patched["credits"])
	}
}

func TestClerkDeductExhausted(t *testing.T) {
	stub, client := newClerkStub(t, map[string]any{"credits": float64(0)})
	ledger := NewClerkLedger(client, 3)

	_, err := ledger.Deduct(context.Background(), "user_1")
	if !errors.Is(err, domain.ErrCreditsExhausted) {
		t.Fatalf("err = %v, want ErrCreditsExhausted", err)
	}
	if stub.patched != nil {
		t.Fatalf("metadata must not be patched when exhausted")
	}
}

func TestClerkBalanceAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client, err := clerk.New(clerk.Options{BaseURL: srv.URL, SecretKey: "sk_test"})
	if err != nil {
		t.Fatalf("new clerk client: %v", err)
	}
	ledger := NewClerkLedger(client, 3)

	_, err = ledger.Balance(context.Background(), "user_1")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
}
