package domain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageReference is a tagged value: either embedded bytes with a MIME type or
// a remote URL. Exactly one representation is authoritative at a time.
type ImageReference struct {
	URL  string
	Data []byte
	MIME string
}

const defaultImageMIME = "image/png"

// ImageFromBytes builds an embedded reference. An empty MIME defaults to PNG.
func ImageFromBytes(data []byte, mime string) ImageReference {
	if mime == "" {
		mime = defaultImageMIME
	}
	return ImageReference{Data: data, MIME: mime}
}

// ImageFromURL builds a remote reference.
func ImageFromURL(url string) ImageReference {
	return ImageReference{URL: url}
}

// ParseImageReference accepts the three shapes clients send: an http(s) URL,
// a data URI, or a bare base64 payload (assumed PNG).
func ParseImageReference(s string) (ImageReference, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ImageReference{}, errors.New("empty image reference")
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return ImageFromURL(s), nil
	case strings.HasPrefix(s, "data:"):
		return parseDataURI(s)
	default:
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return ImageReference{}, fmt.Errorf("decode base64 image: %w", err)
		}
		return ImageFromBytes(data, defaultImageMIME), nil
	}
}

func parseDataURI(s string) (ImageReference, error) {
	rest := strings.TrimPrefix(s, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return ImageReference{}, errors.New("malformed data URI")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return ImageReference{}, errors.New("data URI must be base64 encoded")
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageReference{}, fmt.Errorf("decode data URI payload: %w", err)
	}
	return ImageFromBytes(data, mime), nil
}

// IsZero reports whether the reference carries neither representation.
func (r ImageReference) IsZero() bool {
	return r.URL == "" && len(r.Data) == 0
}

// Remote reports whether the URL form is authoritative.
func (r ImageReference) Remote() bool {
	return r.URL != "" && len(r.Data) == 0
}

// DataURI renders the embedded form as a displayable data URI.
func (r ImageReference) DataURI() (string, error) {
	if len(r.Data) == 0 {
		return "", errors.New("image reference has no embedded data")
	}
	mime := r.MIME
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data), nil
}

// DisplayURI returns whatever URI form is available: a data URI for embedded
// images, the raw URL otherwise.
func (r ImageReference) DisplayURI() (string, error) {
	if len(r.Data) > 0 {
		return r.DataURI()
	}
	if r.URL != "" {
		return r.URL, nil
	}
	return "", errors.New("empty image reference")
}

// ImageResolver converts remote references to the embedded form. The copy is
// lossless: the fetched bytes are embedded verbatim.
type ImageResolver struct {
	httpClient *http.Client
	maxBytes   int64
}

const defaultMaxImageBytes = 32 << 20 // 32 MiB

// NewImageResolver builds a resolver with a bounded fetch timeout.
func NewImageResolver(timeout time.Duration) *ImageResolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ImageResolver{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   defaultMaxImageBytes,
	}
}

// Resolve returns the embedded form of ref, fetching the URL when needed.
// Embedded references are returned unchanged.
func (r *ImageResolver) Resolve(ctx context.Context, ref ImageReference) (ImageReference, error) {
	if len(ref.Data) > 0 {
		return ref, nil
	}
	if ref.URL == "" {
		return ImageReference{}, errors.New("empty image reference")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return ImageReference{}, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ImageReference{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ImageReference{}, fmt.Errorf("fetch image: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes))
	if err != nil {
		return ImageReference{}, fmt.Errorf("read image body: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = defaultImageMIME
	}
	return ImageFromBytes(data, mime), nil
}
