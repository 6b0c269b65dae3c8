package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/metrics"
	"github.com/roach88/peersync/internal/replication"
)

// maxErrorBody caps how much of a peer error response is read.
const maxErrorBody = 64 << 10

// Client calls the peer's user and order endpoints.
//
// Thread-safety: Client is safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a client from cfg. logger defaults to slog.Default().
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout + time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.ReadTimeout,
		},
		logger: logger.With("component", "peer"),
	}, nil
}

// CreateUser sends POST /users.
func (c *Client) CreateUser(ctx context.Context, env domain.UserEnvelope) error {
	return c.call(ctx, "create user", http.MethodPost, "/users", env)
}

// UpdateUser sends PUT /users/{externalID}.
func (c *Client) UpdateUser(ctx context.Context, externalID string, env domain.UserEnvelope) error {
	return c.call(ctx, "update user", http.MethodPut, "/users/"+url.PathEscape(externalID), env)
}

// DeleteUser sends DELETE /users/{externalID}.
func (c *Client) DeleteUser(ctx context.Context, externalID string) error {
	return c.call(ctx, "delete user", http.MethodDelete, "/users/"+url.PathEscape(externalID), nil)
}

// CreateOrder sends POST /orders.
func (c *Client) CreateOrder(ctx context.Context, env domain.OrderEnvelope) error {
	return c.call(ctx, "create order", http.MethodPost, "/orders", env)
}

// UpdateOrder sends PUT /orders/{externalID}.
func (c *Client) UpdateOrder(ctx context.Context, externalID string, env domain.OrderEnvelope) error {
	return c.call(ctx, "update order", http.MethodPut, "/orders/"+url.PathEscape(externalID), env)
}

// DeleteOrder sends DELETE /orders/{externalID}.
func (c *Client) DeleteOrder(ctx context.Context, externalID string) error {
	return c.call(ctx, "delete order", http.MethodDelete, "/orders/"+url.PathEscape(externalID), nil)
}

// call performs one logical peer call with retries. body may be nil.
func (c *Client) call(ctx context.Context, op, method, path string, body any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("peer %s: encode body: %w", op, err)
		}
	}

	start := time.Now()
	defer func() {
		metrics.PeerCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	// last holds the outcome of the most recent attempt.
	var last *Error
	transient := false
	r := &retryer{
		maxAttempts: c.cfg.MaxAttempts,
		interval:    c.cfg.Backoff,
		logger:      c.logger.With("op", op, "method", method, "path", path),
		retryFunc: func(ctx context.Context) error {
			last = c.attempt(ctx, op, method, path, payload)
			if last == nil {
				return nil
			}
			last.EarlierTransient = transient
			if last.Retriable() {
				transient = true
				return fmt.Errorf("%w: %w", errRetryable, last)
			}
			return last
		},
	}

	attempts, err := r.run(ctx)
	if err == nil {
		c.logger.Debug("peer call succeeded", "op", op, "path", path, "attempts", attempts)
		return nil
	}
	last.Attempts = attempts
	return last
}

// attempt sends one request. It returns nil on a 2xx response.
func (c *Client) attempt(ctx context.Context, op, method, path string, payload []byte) *Error {
	fail := &Error{Op: op, Method: method, Path: path}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		fail.Err = err
		fail.permanent = true
		return fail
	}
	req.Header.Set(replication.Header, "true")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.PeerAttemptsTotal.WithLabelValues(method, metrics.ResultClass(0)).Inc()
		fail.Err = err
		return fail
	}
	defer resp.Body.Close()
	metrics.PeerAttemptsTotal.WithLabelValues(method, metrics.ResultClass(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	fail.Status = resp.StatusCode
	fail.Message = errorMessage(resp.Body)
	return fail
}

// errorMessage extracts the "message" field of a peer error body. It
// returns "" when the body is not the peer's JSON error shape.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Message
}
