// Package gradio implements the small subset of the Gradio Space HTTP API
// needed to drive a hosted model: file upload, a named API call, and the
// server-sent result stream.
package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Options configures the client. Token is an optional Hugging Face token for
// gated Spaces.
type Options struct {
	SpaceURL   string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to one Gradio Space.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a Client for the given Space URL.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.SpaceURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
	}
}

// FileRef points an API call argument at a previously uploaded file.
type FileRef struct {
	Path string   `json:"path"`
	Meta fileMeta `json:"meta"`
}

type fileMeta struct {
	Type string `json:"_type"`
}

// NewFileRef wraps a server-side path in the shape Gradio expects.
func NewFileRef(path string) FileRef {
	return FileRef{Path: path, Meta: fileMeta{Type: "gradio.FileData"}}
}

// UploadFile stores the bytes on the Space and returns the server-side path.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", errors.New("gradio client not configured")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gradio: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradio: upload: http %d", resp.StatusCode)
	}
	var paths []string
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		return "", fmt.Errorf("gradio: decode upload response: %w", err)
	}
	if len(paths) == 0 || strings.TrimSpace(paths[0]) == "" {
		return "", errors.New("gradio: upload returned no path")
	}
	return paths[0], nil
}

// Predict invokes the named API with positional arguments and waits for the
// completed result data.
func (c *Client) Predict(ctx context.Context, apiName string, data []any) ([]any, error) {
	if c == nil || c.baseURL == "" {
		return nil, errors.New("gradio client not configured")
	}
	eventID, err := c.enqueue(ctx, apiName, data)
	if err != nil {
		return nil, err
	}
	return c.awaitResult(ctx, apiName, eventID)
}

func (c *Client) enqueue(ctx context.Context, apiName string, data []any) (string, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call/"+apiName, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gradio: call %s: %w", apiName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradio: call %s: http %d", apiName, resp.StatusCode)
	}
	var out struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gradio: decode call response: %w", err)
	}
	if out.EventID == "" {
		return "", errors.New("gradio: call returned no event id")
	}
	return out.EventID, nil
}

// awaitResult reads the event stream for one call. Each event is an
// "event:" line followed by a "data:" line; the stream ends with either a
// complete or an error event.
func (c *Client) awaitResult(ctx context.Context, apiName, eventID string) ([]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/"+apiName+"/"+eventID, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gradio: result stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gradio: result stream: http %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	event := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				var data []any
				if err := json.Unmarshal([]byte(payload), &data); err != nil {
					return nil, fmt.Errorf("gradio: decode result: %w", err)
				}
				return data, nil
			case "error":
				if payload == "" || payload == "null" {
					return nil, errors.New("gradio: processing failed")
				}
				return nil, fmt.Errorf("gradio: processing failed: %s", payload)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gradio: read result stream: %w", err)
	}
	return nil, errors.New("gradio: stream ended without a result")
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
