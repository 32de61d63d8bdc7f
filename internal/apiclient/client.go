// Package apiclient is the HTTP adapter to the fleet REST backend.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetcore-io/fleetcore/internal/pkg/metrics"
	"github.com/fleetcore-io/fleetcore/pkg/options"
)

// TokenSource yields the bearer token for the next request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

// Client performs JSON requests against the API base URL.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	log    logr.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l logr.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a client for opts. tokens may be nil for anonymous use.
func New(opts *options.APIOptions, tokens TokenSource, o ...Option) (*Client, error) {
	base, err := opts.BaseURL()
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via flag
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		tokens: tokens,
		log:    logr.Discard(),
	}
	for _, opt := range o {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string { return c.base.String() }

// Do sends body as JSON and decodes a 2xx response into out. body and out
// may be nil. Any other outcome is a *RequestError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	code, err := c.do(ctx, method, path, body, out)

	metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	c.log.V(1).Info("API request", "method", method, "path", path, "status", code, "latency", time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	fail := func(code int, msg string, err error) (int, error) {
		return code, &RequestError{Method: method, Path: path, StatusCode: code, Message: msg, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fail(0, "cannot encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fail(0, genericMessage, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fail(0, "cannot read session", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, genericMessage, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fail(resp.StatusCode, genericMessage, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, errorMessage(resp.StatusCode, data), nil)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fail(resp.StatusCode, "unexpected response from server", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.base.String(), "/") + "/" + strings.TrimLeft(path, "/")
}

func errorMessage(code int, data []byte) string {
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.text() != "" {
		return eb.text()
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return genericMessage
}
