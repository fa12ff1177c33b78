package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "mock", cfg.Quotes.Source)
	assert.Equal(t, 30*time.Second, cfg.Quotes.CacheTTL.D())
	assert.Equal(t, "1", cfg.Auth.DefaultUserID)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, []string{filepath.Join(dir, "data", "stockvision.db"), filepath.Join(resolved, "data", "stockvision.db")}, cfg.Database.Path)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "stockvision.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000
log_level = "debug"

[quotes]
cache_ttl = "2m"
cache_backend = "none"

[pipeline]
concurrency = 3
`), 0o644))

	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.Quotes.CacheTTL.D())
	assert.Equal(t, "none", cfg.Quotes.CacheBackend)
}

func TestLoad_EnvDuration(t *testing.T) {
	chdirTemp(t)
	t.Setenv("QUOTE_TIMEOUT", "750ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Quotes.Timeout.D())
}

func TestLoad_MissingFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load("/definitely/not/here.toml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"ok", func(c *Config) {}, ""},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown database driver"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, "DB_DSN"},
		{"auth without secret", func(c *Config) { c.Auth.Required = true }, "JWT_SECRET"},
		{"http without url", func(c *Config) { c.Quotes.Source = "http" }, "QUOTE_BASE_URL"},
		{"http bad template", func(c *Config) {
			c.Quotes.Source = "http"
			c.Quotes.BaseURL = "http://x"
			c.Quotes.PathTemplate = "/quote"
		}, "{symbol}"},
		{"sqlite cache on memory", func(c *Config) { c.Database.Driver = "memory" }, "sqlite quote cache"},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, "concurrency"},
		{"backup without bucket", func(c *Config) { c.Backup.Enabled = true }, "bucket"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
