// Package apiclient sends requests to the task-manager REST API. Every request
// carries the session's bearer token, and any 401 tears the session down.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is used when no API URL is configured
const DefaultBaseURL = "http://localhost:8080"

// Credentials is the part of the session the client needs
type Credentials interface {
	Token() string
	Logout() error
}

// Client wraps an http.Client with the auth request/response handling
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials

	mu        sync.RWMutex
	onExpired func()
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a request timeout. Zero keeps the transport default.
// A client passed with WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithAuthExpiredHandler registers fn to run after a 401 has cleared the session
func WithAuthExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New creates a client for baseURL using creds for the bearer token
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		creds:   creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuthExpiredHandler replaces the handler run after a 401
func (c *Client) SetAuthExpiredHandler(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends a JSON request. in is encoded as the body when non-nil; out, when
// non-nil, receives the decoded 2xx response body.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return &Error{Kind: KindRequest, Method: method, Path: path, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("api: %s %s: no response: %v", method, path, err)
		return &Error{Kind: KindNoResponse, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, method, path, out)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// newRequest is the request interceptor: it is the only place headers are set.
func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path must start with /: %q", path)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// handleResponse is the response interceptor
func (c *Client) handleResponse(resp *http.Response, method, path string, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNoResponse, Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(method, path)
		return &Error{
			Kind:    KindAuthExpired,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: extractMessage(raw),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractMessage(raw)
		log.Printf("api: %s %s: %d: %q", method, path, resp.StatusCode, msg)
		return &Error{Kind: KindStatus, Method: method, Path: path, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{
			Kind:    KindStatus,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: "unreadable response",
			Err:     fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

func (c *Client) expireSession(method, path string) {
	log.Printf("api: %s %s: 401, clearing session", method, path)
	if c.creds != nil {
		if err := c.creds.Logout(); err != nil {
			log.Printf("api: clear session: %v", err)
		}
	}
	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// extractMessage pulls a human message out of an error body, or "" if there is none
func extractMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if m := strings.TrimSpace(body.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(body.Error); m != "" {
			return m
		}
	}
	return ""
}
