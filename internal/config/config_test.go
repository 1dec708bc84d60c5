package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fetchkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  baseUrl: https://api.example.com
  timeout: 3s
polling:
  interval: 250ms
  enabled: false
pagination:
  limit: 25
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Client.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
	assert.Equal(t, DefaultRetryMax, cfg.Client.RetryMax)
	assert.Equal(t, 250*time.Millisecond, cfg.Polling.Interval)
	assert.False(t, cfg.Polling.Enabled)
	assert.Equal(t, 25, cfg.Pagination.Limit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fetchkit.yaml"), []byte("pagination:\n  limit: 7\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pagination.Limit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FETCHKIT_CLIENT_BASEURL", "http://users.internal:9000/api")
	t.Setenv("FETCHKIT_POLLING_INTERVAL", "2s")
	t.Setenv("FETCHKIT_PAGINATION_LIMIT", "50")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://users.internal:9000/api", cfg.Client.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 50, cfg.Pagination.Limit)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FETCHKIT_LOG_LEVEL", "verbose")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "log.level")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero limit", func(c *Config) { c.Pagination.Limit = 0 }, "pagination.limit"},
		{"limit too large", func(c *Config) { c.Pagination.Limit = 500 }, "pagination.limit"},
		{"zero interval", func(c *Config) { c.Polling.Interval = 0 }, "polling.interval"},
		{"bad base url", func(c *Config) { c.Client.BaseURL = "not a url" }, "client.baseurl"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad addr", func(c *Config) { c.Server.Addr = "8080" }, "server.addr"},
		{"negative rate", func(c *Config) { c.Server.RateLimitPerMinute = -1 }, "server.ratelimitperminute"},
		{"bad endpoint", func(c *Config) { c.S3.Endpoint = "::" }, "s3.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fetchkit.yaml")

	cfg := Default()
	cfg.Client.BaseURL = "https://example.com/api"
	cfg.Polling.Interval = 1500 * time.Millisecond
	cfg.S3.Bucket = "reports"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	log.Info("hidden")
	log.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":1`)

	buf.Reset()
	LogConfig{Level: "debug", Format: "text"}.NewLogger(&buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
