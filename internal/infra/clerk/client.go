// Package clerk is a thin client for the Clerk backend API: user lookup,
// user-metadata updates, and session-token verification against the
// instance JWKS. It is shared by the auth middleware and the credit ledger.
package clerk

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Options configures the client. SecretKey is required.
type Options struct {
	BaseURL    string
	JWKSURL    string
	SecretKey  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the Clerk backend API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	jwksURL    string
	secretKey  string

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// New builds a Client. The JWKS URL defaults to {BaseURL}/jwks.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, errors.New("clerk: secret key is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.clerk.com/v1"
	}
	jwksURL := strings.TrimSpace(opts.JWKSURL)
	if jwksURL == "" {
		jwksURL = base + "/jwks"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		jwksURL:    jwksURL,
		secretKey:  opts.SecretKey,
		keys:       make(map[string]*rsa.PublicKey),
	}, nil
}

// User is the subset of a Clerk user record this service reads.
type User struct {
	ID             string         `json:"id"`
	PublicMetadata map[string]any `json:"public_metadata"`
}

type apiError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GetUser fetches one user record by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("clerk: user id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clerk: get user: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clerk: get user: %s", readAPIError(resp))
	}
	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("clerk: decode user: %w", err)
	}
	return &user, nil
}

// UpdateUserMetadata merges the given public metadata into the user record.
func (c *Client) UpdateUserMetadata(ctx context.Context, userID string, publicMetadata map[string]any) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("clerk: user id is required")
	}
	body, err := json.Marshal(map[string]any{"public_metadata": publicMetadata})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/users/"+userID+"/metadata", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clerk: update metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clerk: update metadata: %s", readAPIError(resp))
	}
	return nil
}

// VerifySession validates a session JWT against the instance JWKS and
// returns the subject user id.
func (c *Client) VerifySession(ctx context.Context, token string) (string, error) {
	keyfunc := func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := c.keyFor(kid)
		if !ok {
			if err := c.refreshKeys(ctx); err != nil {
				return nil, err
			}
			key, ok = c.keyFor(kid)
			if !ok {
				return nil, fmt.Errorf("unknown signing key %q", kid)
			}
		}
		return key, nil
	}
	if err := c.ensureKeys(ctx); err != nil {
		return "", err
	}
	parsed, err := jwt.Parse(token, keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("clerk: verify session: %w", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("clerk: session token has no subject")
	}
	return sub, nil
}

func (c *Client) keyFor(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	return key, ok
}

func (c *Client) ensureKeys(ctx context.Context) error {
	c.mu.RLock()
	fresh := time.Since(c.fetched) < time.Hour && len(c.keys) > 0
	c.mu.RUnlock()
	if fresh {
		return nil
	}
	return c.refreshKeys(ctx)
}

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (c *Client) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clerk: fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clerk: fetch jwks: http %d", resp.StatusCode)
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("clerk: decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey)
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("clerk: jwks contained no usable keys")
	}
	c.mu.Lock()
	c.keys = keys
	c.fetched = time.Now()
	c.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	exp := 0
	for _, b := range eBytes {
		exp = exp<<8 | int(b)
	}
	if exp <= 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exp}, nil
}

func readAPIError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var payload apiError
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
		return fmt.Sprintf("http %d: %s", resp.StatusCode, payload.Errors[0].Message)
	}
	return fmt.Sprintf("http %d", resp.StatusCode)
}
