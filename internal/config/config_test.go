package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.Native.CallTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Native.RetryDelay)
	assert.Equal(t, "kick", cfg.WS.SlowSubscriber)
	assert.Equal(t, 8, cfg.WS.MaxInflight)
	assert.Equal(t, "none", cfg.Fanout.Driver)
	assert.Equal(t, "sqlite", cfg.Archive.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Archive.ConnMaxLifetime)
}

func TestLoadFileReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: debug
port: 9090
log:
  level: debug
  pretty: true
native:
  token: s3cret
  retry: 2
  retry_delay: 50ms
fanout:
  driver: redis
  redis:
    address: redis:6379
    db: 3
archive:
  driver: none
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "s3cret", cfg.Native.Token)
	assert.Equal(t, 2, cfg.Native.Retry)
	assert.Equal(t, 50*time.Millisecond, cfg.Native.RetryDelay)
	assert.Equal(t, "redis:6379", cfg.Fanout.Redis.Address)
	assert.Equal(t, 3, cfg.Fanout.Redis.DB)
	assert.Equal(t, 10, cfg.Fanout.Redis.PoolSize)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("NATIVE_TOKEN", "from-env")
	t.Setenv("PORT", "7000")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Native.Token)
	assert.Equal(t, 7000, cfg.Port)
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fanout:\n  driver: kafka\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "fanout")
}
