// Package replicate is a minimal client for the Replicate predictions API,
// covering the single blocking-generation call this service needs.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures the client. APIToken is required for real calls.
type Options struct {
	BaseURL    string
	APIToken   string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls one Replicate model via the blocking predictions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewClient builds a Client with production defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "google/nano-banana-pro"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIToken),
		model:      model,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// PredictionInput is the generation payload for image-editing models that
// accept reference images.
type PredictionInput struct {
	Prompt            string   `json:"prompt"`
	ImageInput        []string `json:"image_input"`
	AspectRatio       string   `json:"aspect_ratio,omitempty"`
	OutputFormat      string   `json:"output_format,omitempty"`
	SafetyFilterLevel string   `json:"safety_filter_level,omitempty"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	Detail string          `json:"detail"`
}

// Predict runs the model synchronously and returns the generated image URL.
// Replicate's output field is untyped; every accepted shape is normalized in
// one place so the boundary stays unit-testable.
func (c *Client) Predict(ctx context.Context, input PredictionInput) (string, error) {
	if c == nil {
		return "", errors.New("replicate client not configured")
	}
	if c.token == "" {
		return "", errors.New("replicate: API token is missing")
	}
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return "", err
	}
	endpoint := c.baseURL + "/models/" + c.model + "/predictions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Prefer", "wait=60")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("replicate: %w", err)
	}
	defer resp.Body.Close()

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("replicate: http %d", resp.StatusCode)
		}
		return "", fmt.Errorf("replicate: decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if pred.Detail != "" {
			return "", fmt.Errorf("replicate: http %d: %s", resp.StatusCode, pred.Detail)
		}
		return "", fmt.Errorf("replicate: http %d", resp.StatusCode)
	}
	if pred.Error != "" {
		return "", fmt.Errorf("replicate: prediction error: %s", pred.Error)
	}
	switch pred.Status {
	case "failed", "canceled":
		return "", fmt.Errorf("replicate: prediction %s", pred.Status)
	}
	return normalizeOutput(pred.Output)
}

// normalizeOutput accepts the success shapes Replicate models emit: a bare
// URL string, an array of URLs (first element wins, which may itself be an
// object), or an object exposing a url field.
func normalizeOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("replicate: empty output")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("replicate: decode output: %w", err)
	}
	url, err := outputURL(value)
	if err != nil {
		return "", err
	}
	return url, nil
}

func outputURL(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", errors.New("replicate: empty output url")
		}
		return v, nil
	case []any:
		if len(v) == 0 {
			return "", errors.New("replicate: empty output array")
		}
		return outputURL(v[0])
	case map[string]any:
		if url, ok := v["url"].(string); ok && strings.TrimSpace(url) != "" {
			return url, nil
		}
		return "", errors.New("replicate: output object has no url")
	default:
		return "", fmt.Errorf("replicate: unexpected output shape %T", value)
	}
}
