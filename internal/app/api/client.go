/*
Package api implements the typed REST client for the Chatify backend.

This file defines the Client struct and its request plumbing: base URL handling,
the fixed response ceiling, cookie and bearer-token credentials, and the hook
invoked when the server reports that the session is no longer valid.
*/
package api

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/logx"
)

// DefaultTimeout is the fixed connect/response ceiling for every REST call.
// A call that exceeds it fails with a network error.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the current bearer token; it returns "" when signed out.
type TokenSource func() string

// Client is the typed HTTP client for the backend's /api surface.
type Client struct {
	// baseURL is the API root, e.g. "http://localhost:3000/api", without trailing slash.
	baseURL string

	// httpClient carries the cookie jar, timeout, and logging transport.
	httpClient *http.Client

	// tokenSource supplies the bearer token attached to every request, when non-empty.
	tokenSource TokenSource

	// onUnauthorized is invoked on any 401 response, after which the error still propagates.
	onUnauthorized func()

	// structured logger with client context.
	logger zerolog.Logger
}

// Option configures a Client during construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. The caller owns its configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the response ceiling on the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource registers the source of the bearer token attached to each request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokenSource = ts }
}

// NewClient constructs a Client for the given API base URL.
// Session cookies set by the server are retained for subsequent calls.
func NewClient(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Jar:       jar,
			Transport: logx.NewHTTPLogger(nil),
		},
		logger: logx.Logger().With().Str("component", "api").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// OnUnauthorized registers the hook invoked whenever the server responds 401.
// The session manager uses it to drop the local credential and force re-authentication.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// do issues a single request and decodes a successful JSON response into out (when non-nil).
// All failures are normalized into *errs.CustomError: transport failures become
// network errors, HTTP failures are mapped by status with the server's message attached.
func (c *Client) do(req *http.Request, out any) *errs.CustomError {
	if c.tokenSource != nil {
		if raw := c.tokenSource(); raw != "" {
			req.Header.Set("Authorization", "Bearer "+raw)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.NewError(errs.ErrNetwork)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	if resp.StatusCode >= 400 {
		return errs.FromStatus(resp.StatusCode, serverMessage(resp))
	}

	if out == nil {
		return nil
	}

	return decodeJSON(resp, out)
}
