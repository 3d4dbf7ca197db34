// Package config reads the CLI configuration file.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file read when no --config flag is given.
const DefaultPath = "flowgraph.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the content of flowgraph.yaml.
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Runner  RunnerConfig  `yaml:"runner" json:"runner"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// StoreConfig selects where named graphs live.
type StoreConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	Dir     string      `yaml:"dir" json:"dir"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
	// EncryptionKey is a base64 AES-256 key sealing stored graphs.
	// EncryptionKeyEnv overrides it when set.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	// Mask lists regular expressions of value keys masked on save.
	Mask []string `yaml:"mask" json:"mask"`
}

// EncryptionKeyEnv names the environment variable holding the store key.
const EncryptionKeyEnv = "FLOWGRAPH_ENCRYPTION_KEY"

// Key returns the decoded encryption key, or nil when none is configured.
func (s StoreConfig) Key() ([]byte, error) {
	encoded := s.EncryptionKey
	if env := os.Getenv(EncryptionKeyEnv); env != "" {
		encoded = env
	}
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Lock     bool          `yaml:"lock" json:"lock"`
}

// RunnerConfig tunes the polling host.
type RunnerConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// MetricsConfig controls the Prometheus endpoint of serve.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Store:   StoreConfig{Backend: StoreFile, Dir: filepath.Join(".flowgraph", "graphs")},
		Runner:  RunnerConfig{Interval: 10 * time.Millisecond},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreRedis && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for the redis backend")
	}
	if _, err := c.Store.Key(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
