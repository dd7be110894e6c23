// Package config loads CLI and server settings from a YAML file and TENDRIL_* variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "tendril.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the resolved configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Encryption EncryptionConfig `mapstructure:"encryption" yaml:"encryption"`
	LogLevel   string           `mapstructure:"log_level" yaml:"log_level"`
	MaxSteps   int              `mapstructure:"max_steps" yaml:"max_steps"`
	HTTPAddr   string           `mapstructure:"http_addr" yaml:"http_addr"`
	Interrupts []string         `mapstructure:"interrupts" yaml:"interrupts"`
}

// StoreConfig selects and configures the checkpoint backend.
type StoreConfig struct {
	Backend    string      `mapstructure:"backend" yaml:"backend"`
	Dir        string      `mapstructure:"dir" yaml:"dir"`
	SQLitePath string      `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// EncryptionConfig holds base64-encoded AES-256 keys. An empty Key disables encryption.
type EncryptionConfig struct {
	Key          string   `mapstructure:"key" yaml:"key"`
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:    BackendFile,
			Dir:        ".tendril/sessions",
			SQLitePath: ".tendril/tendril.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tendril:",
			},
		},
		LogLevel: "info",
		MaxSteps: 25,
		HTTPAddr: ":8080",
	}
}

// envKeys maps environment variables to their path in the settings tree.
var envKeys = map[string][]string{
	"TENDRIL_STORE":                {"store", "backend"},
	"TENDRIL_STORE_DIR":            {"store", "dir"},
	"TENDRIL_SQLITE_PATH":          {"store", "sqlite_path"},
	"TENDRIL_REDIS_ADDR":           {"store", "redis", "addr"},
	"TENDRIL_REDIS_PASSWORD":       {"store", "redis", "password"},
	"TENDRIL_REDIS_DB":             {"store", "redis", "db"},
	"TENDRIL_REDIS_PREFIX":         {"store", "redis", "prefix"},
	"TENDRIL_REDIS_TTL":            {"store", "redis", "ttl"},
	"TENDRIL_ENCRYPTION_KEY":       {"encryption", "key"},
	"TENDRIL_ENCRYPTION_FALLBACKS": {"encryption", "fallback_keys"},
	"TENDRIL_LOG_LEVEL":            {"log_level"},
	"TENDRIL_MAX_STEPS":            {"max_steps"},
	"TENDRIL_HTTP_ADDR":            {"http_addr"},
	"TENDRIL_INTERRUPTS":           {"interrupts"},
}

// Load reads path (skipped when empty), then applies environment overrides
// looked up through lookup. Pass os.LookupEnv in production.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	if lookup != nil {
		for env, keys := range envKeys {
			if v, ok := lookup(env); ok {
				set(raw, keys, v)
			}
		}
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// set writes v at keys, creating intermediate maps. yaml.v3 decodes nested
// mappings as map[string]any, so that is the only shape handled.
func set(m map[string]any, keys []string, v any) {
	for _, k := range keys[:len(keys)-1] {
		child, ok := m[k].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[k] = child
		}
		m = child
	}
	m[keys[len(keys)-1]] = v
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps: must not be negative, got %d", c.MaxSteps))
	}
	if _, _, err := c.Encryption.Keys(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Enabled reports whether an encryption key is configured.
func (e EncryptionConfig) Enabled() bool { return e.Key != "" }

// Keys decodes the active and fallback keys. Each must be 32 bytes.
func (e EncryptionConfig) Keys() ([]byte, [][]byte, error) {
	if !e.Enabled() {
		if len(e.FallbackKeys) > 0 {
			return nil, nil, errors.New("encryption.fallback_keys: set without encryption.key")
		}
		return nil, nil, nil
	}
	active, err := decodeKey("encryption.key", e.Key)
	if err != nil {
		return nil, nil, err
	}
	fallbacks := make([][]byte, 0, len(e.FallbackKeys))
	for i, k := range e.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("encryption.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func decodeKey(field, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", field, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: must decode to 32 bytes, got %d", field, len(key))
	}
	return key, nil
}
