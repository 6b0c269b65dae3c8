// Package config loads the runtime configuration of a peer.
//
// Sources, lowest to highest precedence: built-in defaults, a YAML file,
// PEERSYNC_* environment variables, then command-line flags (applied by the
// caller). The merged result is checked against an embedded CUE schema.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/peersync/internal/peer"
	"github.com/roach88/peersync/internal/replication"
)

// Config is the full runtime configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" json:"service"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Peer     PeerConfig     `yaml:"peer" json:"peer"`
	Fault    FaultConfig    `yaml:"fault" json:"fault"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// ServiceConfig identifies this peer and where it listens.
type ServiceConfig struct {
	// Name is reported by /health, conventionally "a" or "b".
	Name   string `yaml:"name" json:"name"`
	Listen string `yaml:"listen" json:"listen"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// AuthConfig holds the static bearer token shared by both peers. It is
// checked on inbound requests and sent on outbound ones.
type AuthConfig struct {
	StaticToken string `yaml:"static_token" json:"static_token"`
}

// PeerConfig configures the outbound transport.
type PeerConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	Backoff        time.Duration `yaml:"backoff" json:"backoff"`
}

// FaultConfig configures the fault injector. Threshold 0 disables it.
type FaultConfig struct {
	Threshold int64 `yaml:"threshold" json:"threshold"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`  // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // text | json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service:  ServiceConfig{Name: "a", Listen: ":8080"},
		Database: DatabaseConfig{Path: "peersync.db"},
		Peer: PeerConfig{
			ConnectTimeout: peer.DefaultConnectTimeout,
			ReadTimeout:    peer.DefaultReadTimeout,
			MaxAttempts:    peer.DefaultMaxAttempts,
			Backoff:        peer.DefaultBackoff,
		},
		Fault: FaultConfig{Threshold: replication.DefaultFaultThreshold},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// not empty) and the process environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decodeYAML(data); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto c. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func (c *Config) decodeYAML(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// PeerTransport returns the transport configuration derived from c.
func (c Config) PeerTransport() peer.Config {
	return peer.Config{
		BaseURL:        c.Peer.BaseURL,
		Token:          c.Auth.StaticToken,
		ConnectTimeout: c.Peer.ConnectTimeout,
		ReadTimeout:    c.Peer.ReadTimeout,
		MaxAttempts:    c.Peer.MaxAttempts,
		Backoff:        c.Peer.Backoff,
	}
}

// Redacted returns a copy of c that is safe to print.
func (c Config) Redacted() Config {
	if c.Auth.StaticToken != "" {
		c.Auth.StaticToken = "REDACTED"
	}
	return c
}

// WriteYAML writes c as YAML with two-space indentation.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
