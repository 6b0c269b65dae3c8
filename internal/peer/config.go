package peer

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultConnectTimeout = 200 * time.Millisecond
	DefaultReadTimeout    = 30 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBackoff        = 200 * time.Millisecond
)

// Config configures the peer client.
type Config struct {
	// BaseURL is the peer's root URL, e.g. http://service-b:8080.
	BaseURL string

	// Token is the static bearer credential shared by both peers.
	Token string

	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout bounds one attempt end to end, response body included.
	ReadTimeout time.Duration

	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

// DefaultConfig returns a Config with default timeouts and retry policy.
// BaseURL and Token are left empty.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		Backoff:        DefaultBackoff,
	}
}

// Validate checks that c can be used to build a client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("peer base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("peer base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("peer base URL: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("peer base URL: missing host")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("peer connect timeout must be positive")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("peer read timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("peer max attempts must be at least 1")
	}
	if c.Backoff < 0 {
		return errors.New("peer backoff must not be negative")
	}
	return nil
}
