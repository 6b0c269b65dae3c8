package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "PEERSYNC_"

type envBinding struct {
	name  string
	apply func(c *Config, v string) error
}

func stringVar(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func durationVar(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

var envBindings = []envBinding{
	{"SERVICE_NAME", stringVar(func(c *Config) *string { return &c.Service.Name })},
	{"LISTEN", stringVar(func(c *Config) *string { return &c.Service.Listen })},
	{"DB_PATH", stringVar(func(c *Config) *string { return &c.Database.Path })},
	{"AUTH_TOKEN", stringVar(func(c *Config) *string { return &c.Auth.StaticToken })},
	{"PEER_BASE_URL", stringVar(func(c *Config) *string { return &c.Peer.BaseURL })},
	{"PEER_CONNECT_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Peer.ConnectTimeout })},
	{"PEER_READ_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Peer.ReadTimeout })},
	{"PEER_BACKOFF", durationVar(func(c *Config) *time.Duration { return &c.Peer.Backoff })},
	{"PEER_MAX_ATTEMPTS", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Peer.MaxAttempts = n
		return nil
	}},
	{"FAULT_THRESHOLD", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Fault.Threshold = n
		return nil
	}},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", stringVar(func(c *Config) *string { return &c.Log.Format })},
}

// ApplyEnv overlays PEERSYNC_* variables found by lookup onto c.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.apply(c, v); err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, b.name, v, err)
		}
	}
	return nil
}
