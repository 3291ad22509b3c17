package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lattice/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 100, cfg.History.MaxSize)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(".lattice", "sessions"), cfg.Store.Dir)
	assert.Equal(t, "lattice:session:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.False(t, cfg.Graph.AllowFanIn)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "lattice.yaml", `
listen: ":9090"
log_level: debug
history:
  max_size: 20
store:
  backend: redis
  redis:
    addr: "redis:6379"
    ttl: 1h
remote:
  url: http://compute:8000/layer
  timeout: 2s
graph:
  allow_fan_in: true
layers:
  disabled:
    Repeat: needs a GPU
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 20, cfg.History.MaxSize)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "lattice:session:", cfg.Store.Redis.Prefix, "defaults survive a partial section")
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "http://compute:8000/layer", cfg.Remote.URL)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.True(t, cfg.Graph.AllowFanIn)
	assert.Equal(t, map[string]string{"Repeat": "needs a GPU"}, cfg.Layers.Disabled)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "lattice.json", `{"store": {"backend": "memory"}, "history": {"max_size": 5}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.History.MaxSize)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "lattice.yaml", "listen: \":9090\"\nstore:\n  backend: memory\n")
	t.Setenv("LATTICE_LISTEN", ":7070")
	t.Setenv("LATTICE_HISTORY_MAX_SIZE", "7")
	t.Setenv("LATTICE_GRAPH_PROPAGATE", "true")
	t.Setenv("LATTICE_REDIS_TTL", "90s")
	t.Setenv("LATTICE_STORE_ENCRYPTION_KEY", strings.Repeat("ab", 32))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 7, cfg.History.MaxSize)
	assert.True(t, cfg.Graph.Propagate)
	assert.Equal(t, 90*time.Second, cfg.Store.Redis.TTL)

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "store:\n  backend: s3\n", "unknown store backend"},
		{"unknown key", "listn: \":1\"\n", "invalid config"},
		{"bad level", "log_level: loud\n", "invalid config"},
		{"bad format", "log_format: xml\n", "unknown log format"},
		{"bad history", "history:\n  max_size: 0\n", "max_size"},
		{"short key", "store:\n  encryption_key: abcd\n", "32 bytes"},
		{"not hex", "store:\n  encryption_key: zz\n", "not hex"},
		{"bad duration", "remote:\n  timeout: soon\n", "invalid config"},
		{"bad yaml", "listen: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "lattice.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
