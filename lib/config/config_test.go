package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/meld/message", cfg.Server.MessagePath)
	assert.Equal(t, ".html", cfg.Templates.Ext)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meld.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
templates:
  dir: views
snapshot:
  secret: from-file
metrics:
  enabled: true
log:
  level: debug
  format: json
`), 0o644))
	t.Setenv(SecretEnv, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/meld/socket", cfg.Server.SocketPath, "unset keys keep defaults")
	assert.Equal(t, "views", cfg.Templates.Dir)
	assert.Equal(t, "from-file", cfg.Snapshot.Secret)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadEmptyPath(t *testing.T) {
	t.Setenv(SecretEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSecretEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meld.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snapshot:\n  secret: from-file\n"), 0o644))
	t.Setenv(SecretEnv, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Snapshot.Secret)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("server:\n  adr: \":1\"\n"), &cfg)
	assert.Error(t, err)

	cfg = Default()
	require.NoError(t, Parse(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"relative message path", func(c *Config) { c.Server.MessagePath = "meld" }, "server.message_path"},
		{"same paths", func(c *Config) { c.Server.SocketPath = c.Server.MessagePath }, "must differ"},
		{"zero max bytes", func(c *Config) { c.Server.MaxMessageBytes = 0 }, "max_message_bytes"},
		{"no template dir", func(c *Config) { c.Templates.Dir = "" }, "templates.dir"},
		{"bad ext", func(c *Config) { c.Templates.Ext = "html" }, "templates.ext"},
		{"bad metrics path", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Path = "metrics"
		}, "metrics.path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "component", "counter")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"component":"counter"`)
}
