package config

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := write(t, "flowgraph.yaml", `
log:
  level: debug
store:
  backend: redis
  redis:
    addr: localhost:6379
    ttl: 1h
    lock: true
runner:
  interval: 50ms
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset fields keep defaults")
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.True(t, cfg.Store.Redis.Lock)
	assert.Equal(t, 50*time.Millisecond, cfg.Runner.Interval)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "flowgraph.json", `{"store": {"backend": "memory"}}`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "s3" }},
		{"redis without addr", func(c *Config) { c.Store.Backend = StoreRedis }},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }},
		{"key not base64", func(c *Config) { c.Store.EncryptionKey = "%%%" }},
		{"short key", func(c *Config) { c.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestStoreKey(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	encoded := base64.StdEncoding.EncodeToString(key)

	got, err := StoreConfig{}.Key()
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = StoreConfig{EncryptionKey: encoded}.Key()
	require.NoError(t, err)
	assert.Equal(t, key, got)

	other := bytes.Repeat([]byte{9}, 32)
	t.Setenv(EncryptionKeyEnv, base64.StdEncoding.EncodeToString(other))
	got, err = StoreConfig{EncryptionKey: encoded}.Key()
	require.NoError(t, err)
	assert.Equal(t, other, got)
}
