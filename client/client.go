// Package client talks to the medical records endpoint. Records are
// encrypted with a shroud.FieldEncryptor before they leave and decrypted
// when they come back.
//
// The session token is supplied per request by a TokenProvider; the client
// never stores one.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zoobzio/shroud"
	"github.com/zoobzio/shroud/json"
)

// RecordsPath is the collection path relative to the base URL.
const RecordsPath = "/data-medis"

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

var (
	// ErrNoToken is returned before any request when the provider has no token.
	ErrNoToken = errors.New("no session token")

	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnexpectedPayload is returned when a response body has the wrong shape.
	ErrUnexpectedPayload = errors.New("unexpected payload")
)

// StatusError reports a non-2xx response other than 401/403.
type StatusError struct {
	StatusCode int
	Message    string // "message" field of the error body, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// TokenProvider supplies the bearer token for each request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider that always returns itself.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	fields  *shroud.FieldEncryptor
	codec   shroud.Codec
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, tokens TokenProvider, fields *shroud.FieldEncryptor, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		tokens:  tokens,
		fields:  fields,
		codec:   json.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches every record and decrypts it. The body may be a bare list or
// an object wrapping the list under "data".
func (c *Client) List(ctx context.Context) ([]shroud.Record, error) {
	body, err := c.do(ctx, http.MethodGet, RecordsPath, nil)
	if err != nil {
		return nil, err
	}

	payload, err := c.unwrap(body)
	if err != nil {
		return nil, err
	}

	items, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: want a list, got %T", ErrUnexpectedPayload, payload)
	}

	rs := make([]shroud.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T", ErrUnexpectedPayload, i, item)
		}
		rs = append(rs, m)
	}

	return c.fields.DecryptRecords(ctx, rs)
}

// Get fetches and decrypts one record.
func (c *Client) Get(ctx context.Context, id string) (shroud.Record, error) {
	body, err := c.do(ctx, http.MethodGet, recordPath(id), nil)
	if err != nil {
		return nil, err
	}

	payload, err := c.unwrap(body)
	if err != nil {
		return nil, err
	}

	m, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: want an object, got %T", ErrUnexpectedPayload, payload)
	}

	return c.fields.DecryptRecord(ctx, m)
}

// Create encrypts rec and posts it to the collection.
func (c *Client) Create(ctx context.Context, rec shroud.Record) error {
	_, err := c.do(ctx, http.MethodPost, RecordsPath, c.fields.EncryptRecord(ctx, rec))
	return err
}

// Update encrypts rec and replaces the record with the given id.
func (c *Client) Update(ctx context.Context, id string, rec shroud.Record) error {
	_, err := c.do(ctx, http.MethodPut, recordPath(id), c.fields.EncryptRecord(ctx, rec))
	return err
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, recordPath(id), nil)
	return err
}

func recordPath(id string) string {
	return RecordsPath + "/" + url.PathEscape(id)
}

// unwrap decodes body and strips a {"data": ...} envelope.
func (c *Client) unwrap(body []byte) (any, error) {
	var v any
	if err := c.codec.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
	}

	if m, ok := v.(map[string]any); ok {
		if data, ok := m["data"]; ok && data != nil {
			return data, nil
		}
	}
	return v, nil
}

// do sends one authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	if token == "" {
		return nil, ErrNoToken
	}

	var reader io.Reader
	if body != nil {
		data, err := c.codec.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", c.codec.ContentType())
	if body != nil {
		req.Header.Set("Content-Type", c.codec.ContentType())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: c.errorMessage(data)}
	}

	return data, nil
}

func (c *Client) errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := c.codec.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Message
}
