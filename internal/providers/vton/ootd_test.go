package vton

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tryon-server/internal/domain"
	"tryon-server/internal/providers/gradio"
)

func TestMapCategory(t *testing.T) {
	tests := []struct {
		input domain.GarmentCategory
		want  string
	}{
		{input: domain.CategoryUpperBody, want: "Upper-body"},
		{input: domain.CategoryLowerBody, want: "Lower-body"},
		{input: domain.CategoryDress, want: "Dress"},
		{input: domain.GarmentCategory("unknown"), want: "Upper-body"},
		{input: domain.GarmentCategory(""), want: "Upper-body"},
	}
	for _, tc := range tests {
		if got := MapCategory(tc.input); got != tc.want {
			t.Fatalf("MapCategory(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestOOTDTryOn(t *testing.T) {
	uploads := 0
	var callData []json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			uploads++
			json.NewEncoder(w).Encode([]string{fmt.Sprintf("/tmp/up-%d.png", uploads)})
		case r.Method == http.MethodPost && r.URL.Path == "/call/process_dc":
			var payload struct {
				Data []json.RawMessage `json:"data"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			callData = payload.Data
			json.NewEncoder(w).Encode(map[string]string{"event_id": "ev-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/call/process_dc/ev-1":
			fmt.Fprint(w, "event: complete\ndata: [[{\"image\":{\"url\":\"https://space.dev/result.png\"}}]]\n\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	provider := NewOOTDProvider(
		gradio.NewClient(gradio.Options{SpaceURL: srv.URL}),
		domain.NewImageResolver(time.Second),
	)
	got, err := provider.TryOn(context.Background(), domain.TryOnRequest{
		Person:   domain.ImageFromBytes([]byte{1}, "image/png"),
		Garment:  domain.ImageFromBytes([]byte{2}, "image/png"),
		Category: domain.CategoryDress,
	})
	if err != nil {
		t.Fatalf("try on: %v", err)
	}
	if got.URL != "https://space.dev/result.png" {
		t.Fatalf("result url = %q", got.URL)
	}
	if uploads != 2 {
		t.Fatalf("uploads = %d, want 2", uploads)
	}
	if len(callData) != 7 {
		t.Fatalf("call args = %d, want 7", len(callData))
	}
	var category string
	if err := json.Unmarshal(callData[2], &category); err != nil {
		t.Fatalf("decode category arg: %v", err)
	}
	if category != "Dress" {
		t.Fatalf("category arg = %q, want Dress", category)
	}
}

func TestResultURL(t *testing.T) {
	tests := []struct {
		name    string
		data    []any
		want    string
		wantErr bool
	}{
		{
			name: "gallery of image objects",
			data: []any{[]any{map[string]any{"image": map[string]any{"url": "https://s.dev/a.png"}}}},
			want: "https://s.dev/a.png",
		},
		{
			name: "flat file object",
			data: []any{map[string]any{"url": "https://s.dev/b.png"}},
			want: "https://s.dev/b.png",
		},
		{name: "no data", data: nil, wantErr: true},
		{name: "empty gallery", data: []any{[]any{}}, wantErr: true},
		{name: "missing url", data: []any{map[string]any{"path": "/tmp/x"}}, wantErr: true},
		{name: "unexpected shape", data: []any{"just a string"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resultURL(tc.data)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resultURL: %v", err)
			}
			if got != tc.want {
				t.Fatalf("url = %q, want %q", got, tc.want)
			}
		})
	}
}
