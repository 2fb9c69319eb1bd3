package replicate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:  srv.URL,
		APIToken: "token",
		Model:    "google/nano-banana-pro",
	})
}

func TestPredictSendsPayloadAndHeaders(t *testing.T) {
	var gotPath, gotAuth, gotPrefer string
	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"output": "https://replicate.delivery/out.png",
		})
	})

	url, err := client.Predict(context.Background(), PredictionInput{
		Prompt:            "a person wearing a jacket",
		ImageInput:        []string{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"},
		AspectRatio:       "match_input_image",
		OutputFormat:      "png",
		SafetyFilterLevel: "block_only_high",
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if url != "https://replicate.delivery/out.png" {
		t.Fatalf("url = %q", url)
	}
	if gotPath != "/models/google/nano-banana-pro/predictions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPrefer != "wait=60" {
		t.Fatalf("prefer = %q", gotPrefer)
	}

	var payload struct {
		Input PredictionInput `json:"input"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode captured body: %v", err)
	}
	if payload.Input.Prompt != "a person wearing a jacket" {
		t.Fatalf("prompt = %q", payload.Input.Prompt)
	}
	if len(payload.Input.ImageInput) != 2 {
		t.Fatalf("image_input len = %d, want 2", len(payload.Input.ImageInput))
	}
	if payload.Input.AspectRatio != "match_input_image" {
		t.Fatalf("aspect_ratio = %q", payload.Input.AspectRatio)
	}
}

func TestPredictOutputShapes(t *testing.T) {
	tests := []struct {
		name    string
		output  any
		want    string
		wantErr bool
	}{
		{name: "bare string", output: "https://r.dev/a.png", want: "https://r.dev/a.png"},
		{name: "array of strings", output: []any{"https://r.dev/b.png", "https://r.dev/c.png"}, want: "https://r.dev/b.png"},
		{name: "object with url", output: map[string]any{"url": "https://r.dev/d.png"}, want: "https://r.dev/d.png"},
		{name: "array of objects", output: []any{map[string]any{"url": "https://r.dev/e.png"}}, want: "https://r.dev/e.png"},
		{name: "empty array", output: []any{}, wantErr: true},
		{name: "empty string", output: "   ", wantErr: true},
		{name: "object without url", output: map[string]any{"id": "x"}, wantErr: true},
		{name: "number", output: 42, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"status": "succeeded",
					"output": tc.output,
				})
			})
			url, err := client.Predict(context.Background(), PredictionInput{Prompt: "p"})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got url %q", url)
				}
				return
			}
			if err != nil {
				t.Fatalf("predict: %v", err)
			}
			if url != tc.want {
				t.Fatalf("url = %q, want %q", url, tc.want)
			}
		})
	}
}

func TestPredictNullOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"succeeded","output":null}`)
	})
	if _, err := client.Predict(context.Background(), PredictionInput{Prompt: "p"}); err == nil {
		t.Fatalf("expected error for null output")
	}
}

func TestPredictFailedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "failed"})
	})
	_, err := client.Predict(context.Background(), PredictionInput{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("err = %v, want prediction failed", err)
	}
}

func TestPredictErrorPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"detail": "input validation failed"})
	})
	_, err := client.Predict(context.Background(), PredictionInput{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "input validation failed") {
		t.Fatalf("err = %v, want detail surfaced", err)
	}
}

func TestPredictRequiresToken(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Predict(context.Background(), PredictionInput{Prompt: "p"}); err == nil {
		t.Fatalf("expected error without API token")
	}
}
