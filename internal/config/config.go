// Package config loads the lattice server configuration from a YAML or JSON
// file overlaid with LATTICE_* environment variables.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full server configuration.
type Config struct {
	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string        `mapstructure:"log_format"`
	History   HistoryConfig `mapstructure:"history"`
	Store     StoreConfig   `mapstructure:"store"`
	Remote    RemoteConfig  `mapstructure:"remote"`
	Graph     GraphConfig   `mapstructure:"graph"`
	Layers    LayersConfig  `mapstructure:"layers"`
}

// HistoryConfig bounds the undo stack.
type HistoryConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// StoreConfig selects where files are saved.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	// EncryptionKey is a hex encoded AES-256 key. Empty disables encryption.
	EncryptionKey string      `mapstructure:"encryption_key"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the redis backend and its distributed lock.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RemoteConfig points at a remote layer computer. Empty URL disables it.
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GraphConfig relaxes edge rules and enables propagation.
type GraphConfig struct {
	AllowFanIn     bool `mapstructure:"allow_fan_in"`
	AllowSelfLoops bool `mapstructure:"allow_self_loops"`
	AllowCycles    bool `mapstructure:"allow_cycles"`
	Propagate      bool `mapstructure:"propagate"`
}

// LayersConfig lists layer types that cannot be added, with the reason.
type LayersConfig struct {
	Disabled map[string]string `mapstructure:"disabled"`
}

// defaults returns the configuration used for keys nobody set.
func defaults() map[string]any {
	return map[string]any{
		"listen":     ":8080",
		"log_level":  "info",
		"log_format": "text",
		"history":    map[string]any{"max_size": 100},
		"store": map[string]any{
			"backend": BackendFile,
			"dir":     filepath.Join(".lattice", "sessions"),
			"redis": map[string]any{
				"addr":   "localhost:6379",
				"prefix": "lattice:session:",
			},
		},
		"remote": map[string]any{"timeout": "30s"},
	}
}

// envKeys maps environment variables to configuration paths.
var envKeys = map[string][]string{
	"LATTICE_LISTEN":                 {"listen"},
	"LATTICE_LOG_LEVEL":              {"log_level"},
	"LATTICE_LOG_FORMAT":             {"log_format"},
	"LATTICE_HISTORY_MAX_SIZE":       {"history", "max_size"},
	"LATTICE_STORE_BACKEND":          {"store", "backend"},
	"LATTICE_STORE_DIR":              {"store", "dir"},
	"LATTICE_STORE_ENCRYPTION_KEY":   {"store", "encryption_key"},
	"LATTICE_REDIS_ADDR":             {"store", "redis", "addr"},
	"LATTICE_REDIS_PASSWORD":         {"store", "redis", "password"},
	"LATTICE_REDIS_DB":               {"store", "redis", "db"},
	"LATTICE_REDIS_PREFIX":           {"store", "redis", "prefix"},
	"LATTICE_REDIS_TTL":              {"store", "redis", "ttl"},
	"LATTICE_REMOTE_URL":             {"remote", "url"},
	"LATTICE_REMOTE_TIMEOUT":         {"remote", "timeout"},
	"LATTICE_GRAPH_ALLOW_FAN_IN":     {"graph", "allow_fan_in"},
	"LATTICE_GRAPH_ALLOW_SELF_LOOPS": {"graph", "allow_self_loops"},
	"LATTICE_GRAPH_ALLOW_CYCLES":     {"graph", "allow_cycles"},
	"LATTICE_GRAPH_PROPAGATE":        {"graph", "propagate"},
}

// Load reads path (YAML unless it ends in .json), overlays the environment and
// validates the result. An empty path, or a missing file, yields the defaults.
func Load(path string) (*Config, error) {
	tree := defaults()

	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		merge(tree, file)
	}

	for env, keys := range envKeys {
		if v, ok := os.LookupEnv(env); ok {
			set(tree, keys, v)
		}
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(tree); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	tree := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return tree, nil
}

// merge copies src into dst, descending into nested maps present in both.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if cur, isMap := dst[k].(map[string]any); ok && isMap {
			merge(cur, sub)
			continue
		}
		dst[k] = v
	}
}

func set(tree map[string]any, keys []string, v string) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := tree[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			tree[k] = next
		}
		tree = next
	}
	tree[keys[len(keys)-1]] = v
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("invalid config: unknown store backend %q", c.Store.Backend)
	}
	if c.History.MaxSize < 1 {
		return fmt.Errorf("invalid config: history.max_size must be positive, got %d", c.History.MaxSize)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.EncryptionKey(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// EncryptionKey decodes the store key. It returns nil when encryption is off.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Store.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Store.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store.encryption_key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
