package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("API_PORT", "")
	t.Setenv("ALLOWED_TICKERS_FILE", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_PASSWORD", "")
}

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout())
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout())
	assert.Equal(t, 20.0, cfg.RateLimit.RPS)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 9000
  read_timeout_seconds: 5
redis:
  host: redis.internal
  port: 6379
  db: 1
allowed_tickers_file: /etc/tunnelapi/allowed.json
rate_limit:
  rps: 5
  burst: 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout())
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "/etc/tunnelapi/allowed.json", cfg.AllowedTickersFile)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_PORT", "8080")
	t.Setenv("ALLOWED_TICKERS_FILE", "/tmp/allowed.yaml")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/tmp/allowed.yaml", cfg.AllowedTickersFile)
}

func TestLoad_RedisEnvBeatsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "7000")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_PASSWORD", "hunter2")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
redis:
  host: localhost
  port: 6380
  db: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 7000, cfg.Redis.Port)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
}

func TestLoad_RedisEnvWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 0, cfg.Redis.Port)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Server.Port)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
