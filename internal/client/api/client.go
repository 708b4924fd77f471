// Package api is the client for the main docseal service's HTTP API.
// Calls that need a login take the *session.Session explicitly.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/docseal/internal/client/envelope"
	"github.com/dmitrijs2005/docseal/internal/client/session"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/netx"
)

const DefaultTimeout = 30 * time.Second

// maxResponseBytes bounds JSON and text answers. Envelope downloads are
// base64 inside JSON and may be large.
const maxResponseBytes = 256 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method      string
	path        string
	session     *session.Session
	contentType string
	body        io.Reader
}

func (c *Client) send(ctx context.Context, r request) ([]byte, string, error) {
	target := c.baseURL + r.path
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if r.session != nil {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+r.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &NetworkError{Err: err, URL: target}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", &NetworkError{Err: err, URL: target}
	}

	if resp.StatusCode >= 400 {
		return nil, "", parseErrorResponse(resp.StatusCode, body)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, path string, s *session.Session, in, out any) error {
	r := request{method: method, path: path, session: s}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}

	body, _, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func parseErrorResponse(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && (er.Message != "" || er.Code != "") {
		return &APIError{StatusCode: status, Message: er.Message, Code: er.Code, Problems: er.Errors}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// Register starts a registration. The server mails a one-time code.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/initiate-registration", nil, req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Verify completes a registration with the mailed code.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/verify-registration", nil, req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*session.Session, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: login returned no token", common.ErrInternal)
	}
	return session.FromToken(out.Token)
}

// PrivateKey fetches the caller's private key through the key relay. The
// caller owns the returned bytes and should wipe them after use.
func (c *Client) PrivateKey(ctx context.Context, s *session.Session) ([]byte, error) {
	body, _, err := c.send(ctx, request{method: http.MethodGet, path: "/users/my-private-key", session: s})
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(body)

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: malformed private key response", common.ErrUpstream)
	}
	return key, nil
}

// Upload stores an envelope for recipient under fileName.
func (c *Client) Upload(ctx context.Context, s *session.Session, recipient, fileName string, env []byte) (string, error) {
	ct, body, err := netx.MultipartForm(
		map[string]string{"recipientId": recipient},
		netx.FilePart{Field: "envelope", FileName: fileName, Data: env},
	)
	if err != nil {
		return "", err
	}

	data, _, err := c.send(ctx, request{method: http.MethodPost, path: "/files/upload-encrypted", session: s, contentType: ct, body: body})
	if err != nil {
		return "", err
	}
	var out uploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.DocumentID == "" {
		return "", fmt.Errorf("%w: upload returned no document id", common.ErrInternal)
	}
	return out.DocumentID, nil
}

// Received lists documents addressed to the session's identity, newest first.
func (c *Client) Received(ctx context.Context, s *session.Session) ([]DocumentSummary, error) {
	var out []DocumentSummary
	if err := c.do(ctx, http.MethodGet, "/files/received", s, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download fetches one envelope addressed to the session's identity.
func (c *Client) Download(ctx context.Context, s *session.Session, documentID string) (*Download, error) {
	var out Download
	if err := c.do(ctx, http.MethodGet, "/files/download-encrypted/"+url.PathEscape(documentID), s, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Params fetches the engine public parameters.
func (c *Client) Params(ctx context.Context) ([]byte, error) {
	var out paramsResponse
	if err := c.do(ctx, http.MethodGet, "/params", nil, nil, &out); err != nil {
		return nil, err
	}
	p, err := base64.StdEncoding.DecodeString(out.ParamsB64)
	if err != nil || len(p) == 0 {
		return nil, fmt.Errorf("%w: malformed public parameters", common.ErrUpstream)
	}
	return p, nil
}

// DocumentStore adapts a client and a session to envelope.Store.
type DocumentStore struct {
	client  *Client
	session *session.Session
}

func (c *Client) Documents(s *session.Session) *DocumentStore {
	return &DocumentStore{client: c, session: s}
}

func (d *DocumentStore) Put(ctx context.Context, recipientID, fileName string, env []byte) (string, error) {
	return d.client.Upload(ctx, d.session, recipientID, fileName, env)
}

func (d *DocumentStore) Get(ctx context.Context, documentID string) (*envelope.Document, error) {
	dl, err := d.client.Download(ctx, d.session, documentID)
	if err != nil {
		return nil, err
	}
	env, err := base64.StdEncoding.DecodeString(dl.EnvelopeB64)
	if err != nil {
		return nil, fmt.Errorf("%w: envelope is not base64", common.ErrCorruptEnvelope)
	}
	return &envelope.Document{
		ID:       documentID,
		FileName: dl.OriginalFileName,
		SenderID: dl.SenderID,
		Envelope: env,
	}, nil
}

var _ envelope.Store = (*DocumentStore)(nil)
