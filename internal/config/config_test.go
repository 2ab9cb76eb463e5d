package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, time.Hour, cfg.Cache.BundleTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.ResultTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "data", cfg.Data.Directory)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 1000, cfg.RateLimit.DefaultLimit)
	assert.Equal(t, 60, cfg.RateLimit.OptimizeLimit)
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
server:
  port: 9090
database:
  url: postgres://localhost/benefits
redis:
  address: redis:6380
  db: 2
cache:
  bundle_ttl: 30m
log:
  format: json
rate_limit:
  whitelist:
    - 10.0.0.1
    - 10.0.0.2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/benefits", cfg.Database.URL)
	assert.Equal(t, "redis:6380", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Minute, cfg.Cache.BundleTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.ResultTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.RateLimit.Whitelist)
	assert.Empty(t, cfg.RateLimit.Blacklist)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BENEFITS_SERVER_PORT", "7070")
	t.Setenv("BENEFITS_DATABASE_URL", "postgres://env/benefits")
	t.Setenv("BENEFITS_RATE_LIMIT_OPTIMIZE_LIMIT", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env/benefits", cfg.Database.URL)
	assert.Equal(t, 5, cfg.RateLimit.OptimizeLimit)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Cache:  CacheConfig{BundleTTL: time.Hour, ResultTTL: time.Minute},
			Log:    LogConfig{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"negative bundle ttl", func(c *Config) { c.Cache.BundleTTL = -time.Second }, "bundle_ttl"},
		{"negative result ttl", func(c *Config) { c.Cache.ResultTTL = -time.Second }, "result_ttl"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative rate limit", func(c *Config) { c.RateLimit.OptimizeLimit = -1 }, "rate limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
