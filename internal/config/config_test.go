package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peersync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() Config {
	cfg := Default()
	cfg.Service.Listen = "0.0.0.0:8080"
	cfg.Database.Path = "/var/lib/peersync/a.db"
	cfg.Auth.StaticToken = "s3cret-token"
	cfg.Peer.BaseURL = "http://service-b:8080"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "a", cfg.Service.Name)
	assert.Equal(t, 200*time.Millisecond, cfg.Peer.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.Peer.ReadTimeout)
	assert.Equal(t, 3, cfg.Peer.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Peer.Backoff)
	assert.Equal(t, int64(4), cfg.Fault.Threshold)
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := writeFile(t, `
service:
  name: b
peer:
  base_url: http://service-a:8080
  read_timeout: 5s
fault:
  threshold: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b", cfg.Service.Name)
	assert.Equal(t, ":8080", cfg.Service.Listen, "unset keys keep their default")
	assert.Equal(t, "http://service-a:8080", cfg.Peer.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Peer.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Peer.ConnectTimeout)
	assert.Equal(t, int64(0), cfg.Fault.Threshold)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeFile(t, `
peer:
  base_ulr: http://typo
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_ulr")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Service, cfg.Service)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "peer:\n  max_attempts: 5\n")
	t.Setenv("PEERSYNC_PEER_MAX_ATTEMPTS", "2")
	t.Setenv("PEERSYNC_AUTH_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Peer.MaxAttempts)
	assert.Equal(t, "from-env", cfg.Auth.StaticToken)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PEERSYNC_SERVICE_NAME":         "b",
		"PEERSYNC_LISTEN":               ":9090",
		"PEERSYNC_DB_PATH":              "/tmp/b.db",
		"PEERSYNC_PEER_BASE_URL":        "http://a:8080",
		"PEERSYNC_PEER_CONNECT_TIMEOUT": "150ms",
		"PEERSYNC_PEER_READ_TIMEOUT":    "10s",
		"PEERSYNC_PEER_BACKOFF":         "50ms",
		"PEERSYNC_FAULT_THRESHOLD":      "0",
		"PEERSYNC_LOG_FORMAT":           "json",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "b", cfg.Service.Name)
	assert.Equal(t, ":9090", cfg.Service.Listen)
	assert.Equal(t, "/tmp/b.db", cfg.Database.Path)
	assert.Equal(t, "http://a:8080", cfg.Peer.BaseURL)
	assert.Equal(t, 150*time.Millisecond, cfg.Peer.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Peer.ReadTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Peer.Backoff)
	assert.Equal(t, int64(0), cfg.Fault.Threshold)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level, "untouched")
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "PEERSYNC_PEER_READ_TIMEOUT" {
			return "soon", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PEERSYNC_PEER_READ_TIMEOUT")
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_SubMillisecondDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Peer.ConnectTimeout = 500 * time.Microsecond
	cfg.Peer.ReadTimeout = 1500 * time.Microsecond
	assert.NoError(t, cfg.Validate())

	d := cfg.document()
	assert.Equal(t, int64(1), d.Peer.ConnectTimeoutMS)
	assert.Equal(t, int64(2), d.Peer.ReadTimeoutMS)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Auth.StaticToken = "" }, "auth.static_token"},
		{"missing peer", func(c *Config) { c.Peer.BaseURL = "" }, "peer.base_url"},
		{"bad scheme", func(c *Config) { c.Peer.BaseURL = "ftp://b" }, "peer.base_url"},
		{"zero attempts", func(c *Config) { c.Peer.MaxAttempts = 0 }, "peer.max_attempts"},
		{"zero connect", func(c *Config) { c.Peer.ConnectTimeout = 0 }, "peer.connect_timeout_ms"},
		{"negative threshold", func(c *Config) { c.Fault.Threshold = -1 }, "fault.threshold"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad listen", func(c *Config) { c.Service.Listen = "localhost" }, "service.listen"},
		{"bad name", func(c *Config) { c.Service.Name = "Service A" }, "service.name"},
		{"connect beyond read", func(c *Config) {
			c.Peer.ConnectTimeout = 20 * time.Second
			c.Peer.ReadTimeout = 10 * time.Second
		}, "peer.connect_timeout must not exceed peer.read_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.StaticToken = ""
	cfg.Log.Format = "xml"

	var ve *ValidationError
	require.ErrorAs(t, cfg.Validate(), &ve)
	assert.GreaterOrEqual(t, len(ve.Problems), 2)
}

func TestPeerTransport(t *testing.T) {
	pc := validConfig().PeerTransport()
	assert.Equal(t, "http://service-b:8080", pc.BaseURL)
	assert.Equal(t, "s3cret-token", pc.Token)
	assert.NoError(t, pc.Validate())
}

func TestWriteYAML_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, validConfig().Redacted().WriteYAML(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "config_show", buf.Bytes())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	orig := validConfig()
	require.NoError(t, orig.WriteYAML(&buf))

	cfg := Default()
	require.NoError(t, cfg.decodeYAML(buf.Bytes()))
	assert.Equal(t, orig, cfg)
}
