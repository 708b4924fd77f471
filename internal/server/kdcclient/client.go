// Package kdcclient is the main service's HTTP client for the Key
// Distribution Center.
package kdcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/common"
)

// maxBodyBytes caps how much of a KDC response is read.
const maxBodyBytes = 1 << 20

// StatusError is a non-200 answer from the KDC. Its status and body are
// relayed to the caller unchanged.
type StatusError struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *StatusError) Error() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Message != "" {
		return fmt.Sprintf("kdc error %d: %s", e.StatusCode, body.Message)
	}
	return fmt.Sprintf("kdc error %d", e.StatusCode)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the KDC at baseURL. Every request is bounded by
// timeout.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateKeyRequest struct {
	Email               string `json:"email"`
	DelegatedCredential string `json:"delegatedCredential"`
}

type generateKeyResponse struct {
	PrivateKeyB64 string `json:"privateKeyB64"`
}

// GenerateKey asks the KDC for the private key bound to rawToken. email is
// advisory; the KDC binds the key to the identity inside the token.
//
// Transport failures and timeouts wrap common.ErrUpstream. Any non-200
// answer is a *StatusError.
func (c *Client) GenerateKey(ctx context.Context, email, rawToken string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := json.Marshal(generateKeyRequest{Email: email, DelegatedCredential: rawToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-key", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(common.ServerCredentialHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: kdc request failed: %v", common.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading kdc response: %v", common.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{
			StatusCode:  resp.StatusCode,
			Body:        body,
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	var out generateKeyResponse
	if err := json.Unmarshal(body, &out); err != nil || out.PrivateKeyB64 == "" {
		return "", fmt.Errorf("%w: malformed kdc response", common.ErrUpstream)
	}
	return out.PrivateKeyB64, nil
}
