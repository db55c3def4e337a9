// Package api is the REST client for the storefront backend: orders, payment
// sessions and freight quotes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response ends up in a message.
const maxErrorBody = 512

// TokenSource supplies the bearer token and forgets it when the backend
// rejects it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	breaker *circuitbreaker.Breaker[*response]
	logger  *zap.Logger

	breakerSettings circuitbreaker.Settings
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithBreakerSettings(s circuitbreaker.Settings) Option {
	return func(c *Client) { c.breakerSettings = s }
}

// NewClient builds a client for baseURL. Requests are traced with otelhttp
// and bounded by timeout (DefaultTimeout when zero).
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:          zap.NewNop(),
		breakerSettings: circuitbreaker.DefaultSettings("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = circuitbreaker.New[*response](c.breakerSettings, breakerSuccess, c.logger)
	return c
}

type response struct {
	status int
	body   []byte
}

// errServerStatus marks 5xx answers so they count against the breaker.
var errServerStatus = errors.New("server error status")

// breakerSuccess keeps caller cancellations from tripping the breaker.
func breakerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

type requestOption func(*http.Request)

func idempotencyKey(key string) requestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set("Idempotency-Key", key)
		}
	}
}

// do sends a JSON request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out any, opts ...requestOption) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &RemoteError{Op: op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &RemoteError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(ctx, req)
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer r.Body.Close()
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		res := &response{status: r.StatusCode, body: data}
		if r.StatusCode >= http.StatusInternalServerError {
			return res, errServerStatus
		}
		return res, nil
	})
	if err != nil && !errors.Is(err, errServerStatus) {
		c.logger.Warn("backend call failed",
			zap.String("op", op), zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &RemoteError{Op: op, Err: err}
	}

	c.logger.Debug("backend call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.status),
		zap.Duration("elapsed", time.Since(start)))

	if resp.status == http.StatusUnauthorized {
		c.dropToken(ctx)
	}
	if resp.status < 200 || resp.status > 299 {
		return &RemoteError{Op: op, StatusCode: resp.status, Message: errorMessage(resp.body)}
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &RemoteError{Op: op, StatusCode: resp.status, Message: "invalid response body", Err: err}
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		c.logger.Debug("request sent without token", zap.String("path", req.URL.Path))
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func (c *Client) dropToken(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.ClearToken(ctx); err != nil {
		c.logger.Error("failed to clear rejected token", zap.Error(err))
		return
	}
	c.logger.Info("token rejected by backend, cleared")
}

// errorMessage pulls "message" or "error" out of a JSON error body, falling
// back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
